package normalize

import (
	"regexp"
	"testing"
	"time"

	"qrmenu/internal/domain"

	"github.com/stretchr/testify/assert"
)

var orderNumberPattern = regexp.MustCompile(`^HB\d{6}\d{3}$`)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Now()
	for i := 0; i < 50; i++ {
		number := GenerateOrderNumber(now)
		assert.Regexp(t, orderNumberPattern, number)
	}
}

func testOrder() domain.Order {
	return domain.Order{
		TableID: "12",
		Totals:  domain.OrderTotals{Total: 42.50},
	}
}

func TestOrderResultLadder(t *testing.T) {
	n := newTestNormalizer()
	now := time.Now()

	tests := []struct {
		name     string
		response interface{}
		wantID   string
	}{
		{
			name:     "payload",
			response: map[string]interface{}{"payload": map[string]interface{}{"id": "ord-1", "orderNumber": "A100"}},
			wantID:   "ord-1",
		},
		{
			name:     "data",
			response: map[string]interface{}{"data": map[string]interface{}{"uid": "ord-2"}},
			wantID:   "ord-2",
		},
		{
			name:     "order",
			response: map[string]interface{}{"order": map[string]interface{}{"id": "ord-3"}},
			wantID:   "ord-3",
		},
		{
			name:     "result",
			response: map[string]interface{}{"result": map[string]interface{}{"id": "ord-4"}},
			wantID:   "ord-4",
		},
		{
			name:     "root with id",
			response: map[string]interface{}{"id": "ord-5"},
			wantID:   "ord-5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := n.OrderResult(tt.response, testOrder(), now)
			assert.True(t, result.Success)
			assert.Equal(t, tt.wantID, result.OrderID)
			assert.NotEmpty(t, result.OrderNumber)
		})
	}
}

func TestOrderResultSuccessDefaultsTrue(t *testing.T) {
	n := newTestNormalizer()
	now := time.Now()

	result := n.OrderResult(map[string]interface{}{"payload": map[string]interface{}{"id": "x"}}, testOrder(), now)
	assert.True(t, result.Success)

	result = n.OrderResult(map[string]interface{}{"payload": map[string]interface{}{"id": "x", "isSuccess": false}}, testOrder(), now)
	assert.False(t, result.Success)
}

func TestOrderResultUnrecognizedShape(t *testing.T) {
	n := newTestNormalizer()
	now := time.Now()

	result := n.OrderResult(map[string]interface{}{"weird": "shape"}, testOrder(), now)

	assert.True(t, result.Success)
	assert.False(t, result.Offline)
	assert.Regexp(t, orderNumberPattern, result.OrderNumber)
	assert.Equal(t, FixedEstimatedMinutes, result.EstimatedTime)
	assert.Equal(t, 42.50, result.TotalAmount)
}

func TestOfflineOrderResult(t *testing.T) {
	n := newTestNormalizer()
	now := time.Now()

	result := n.OfflineOrderResult(testOrder(), now)

	assert.True(t, result.Success)
	assert.True(t, result.Offline)
	assert.Regexp(t, orderNumberPattern, result.OrderNumber)
	assert.Equal(t, "pending_sync", result.Status)
	assert.Equal(t, FixedEstimatedMinutes, result.EstimatedTime)
}

func TestOrderResultGeneratedNumberWhenMissing(t *testing.T) {
	n := newTestNormalizer()
	now := time.Now()

	// Remote supplies an id but no order number.
	result := n.OrderResult(map[string]interface{}{"payload": map[string]interface{}{"id": "ord-9"}}, testOrder(), now)
	assert.Regexp(t, orderNumberPattern, result.OrderNumber)

	// Remote-supplied order number is used verbatim.
	result = n.OrderResult(map[string]interface{}{"payload": map[string]interface{}{"id": "ord-9", "orderNumber": "POS-777"}}, testOrder(), now)
	assert.Equal(t, "POS-777", result.OrderNumber)
}
