package normalize

import (
	"fmt"
	"math/rand"
	"time"

	"qrmenu/internal/domain"
)

// FixedEstimatedMinutes is the preparation estimate reported for every
// order regardless of cart contents.
const FixedEstimatedMinutes = 15

const orderNumberPrefix = "HB"

// GenerateOrderNumber synthesizes a display order number: the prefix,
// the last 6 digits of the current epoch seconds, and a zero-padded
// 3-digit random suffix.
func GenerateOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s%06d%03d", orderNumberPrefix, now.Unix()%1_000_000, rand.Intn(1000))
}

// OrderResult interprets a POS order-insert response. The order object is
// located by trying payload, data, order, result, then the root itself if
// it carries an id or uid. Success defaults to true unless the remote
// explicitly says false; a missing order number is generated locally.
func (n *Normalizer) OrderResult(response interface{}, order domain.Order, now time.Time) domain.OrderResult {
	record := locateOrderRecord(response)

	result := domain.OrderResult{
		Success:       true,
		EstimatedTime: FixedEstimatedMinutes,
		TotalAmount:   order.Totals.Total,
		CreatedAt:     now.Format(time.RFC3339),
	}

	if record != nil {
		if record["isSuccess"] == false || record["success"] == false {
			result.Success = false
		}
		if id, ok := firstString(record, []string{"id", "uid", "orderId", "orderUid"}); ok {
			result.OrderID = id
		} else if id, ok := asInt(record["id"]); ok {
			result.OrderID = fmt.Sprintf("%d", id)
		}
		if number, ok := firstString(record, []string{"orderNumber", "number", "code"}); ok {
			result.OrderNumber = number
		}
		if status, ok := firstString(record, []string{"status", "orderStatus", "state"}); ok {
			result.Status = status
		}
		if created, ok := firstString(record, []string{"createdAt", "created_at", "insertedAt"}); ok {
			result.CreatedAt = created
		}
	}

	if result.OrderID == "" {
		result.OrderID = fmt.Sprintf("local-%d", now.UnixMilli())
	}
	if result.OrderNumber == "" {
		result.OrderNumber = GenerateOrderNumber(now)
	}
	if result.Status == "" {
		result.Status = "confirmed"
	}
	return result
}

// OfflineOrderResult synthesizes the terminal result used when the remote
// call failed entirely: success-shaped, explicitly flagged offline.
func (n *Normalizer) OfflineOrderResult(order domain.Order, now time.Time) domain.OrderResult {
	return domain.OrderResult{
		Success:       true,
		Offline:       true,
		OrderID:       fmt.Sprintf("offline-%d", now.UnixMilli()),
		OrderNumber:   GenerateOrderNumber(now),
		Status:        "pending_sync",
		EstimatedTime: FixedEstimatedMinutes,
		TotalAmount:   order.Totals.Total,
		CreatedAt:     now.Format(time.RFC3339),
	}
}

func locateOrderRecord(response interface{}) map[string]interface{} {
	for _, path := range []string{"payload", "data", "order", "result"} {
		if m, ok := atPath(response, path).(map[string]interface{}); ok {
			return m
		}
	}
	if m, ok := response.(map[string]interface{}); ok {
		if _, hasID := m["id"]; hasID {
			return m
		}
		if _, hasUID := m["uid"]; hasUID {
			return m
		}
	}
	return nil
}
