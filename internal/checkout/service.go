package checkout

import (
	"context"
	"math"
	"time"

	"qrmenu/internal/cart"
	"qrmenu/internal/domain"
	"qrmenu/internal/normalize"
	"qrmenu/internal/pos"
	"qrmenu/internal/storage"

	"go.uber.org/zap"
)

const (
	// ServiceFeeRate and TaxRate apply to the cart subtotal.
	ServiceFeeRate = 0.10
	TaxRate        = 0.08

	// Staging backend requires a fully populated object graph; these UIDs
	// satisfy required-but-irrelevant fields.
	stagingClientUID   = "c0a80121-7ac0-11d1-898c-00c04fb6bfc4"
	stagingLocationUID = "c0a80121-7ac0-11d1-898c-00c04fb6bfc5"
)

// Service turns a cart into a POS order. Submission is total: every call
// resolves to a terminal OrderResult — a normalized remote confirmation
// when the POS answers, a locally synthesized offline confirmation when
// it does not.
type Service struct {
	client     *pos.Client
	normalizer *normalize.Normalizer
	storage    *storage.Store
	cart       *cart.Store
	logger     *zap.Logger

	paymentDelay time.Duration
	now          func() time.Time
}

func NewService(
	client *pos.Client,
	normalizer *normalize.Normalizer,
	st *storage.Store,
	cartStore *cart.Store,
	paymentDelay time.Duration,
	logger *zap.Logger,
) *Service {
	return &Service{
		client:       client,
		normalizer:   normalizer,
		storage:      st,
		cart:         cartStore,
		logger:       logger,
		paymentDelay: paymentDelay,
		now:          time.Now,
	}
}

// BuildOrder constructs the immutable outbound order from the current
// cart and the customer's checkout input.
func (s *Service) BuildOrder(tableID string, customer domain.CustomerInfo, paymentMethod string) domain.Order {
	lines := s.cart.Lines()
	subtotal := lines.Total()
	serviceFee := round2(subtotal * ServiceFeeRate)
	tax := round2(subtotal * TaxRate)

	return domain.Order{
		TableID:       tableID,
		Customer:      customer,
		Items:         lines,
		PaymentMethod: paymentMethod,
		Totals: domain.OrderTotals{
			Subtotal:   subtotal,
			ServiceFee: serviceFee,
			Tax:        tax,
			Total:      round2(subtotal + serviceFee + tax),
		},
		EstimatedTime: normalize.FixedEstimatedMinutes,
		CreatedAt:     s.now(),
	}
}

// Submit runs the mock payment delay, sends the order to the POS through
// the authenticated wrapper, and interprets the response. It never
// returns an error: any failure yields an offline-flagged result. The
// terminal result is appended to the local order history and a successful
// completion clears the cart.
func (s *Service) Submit(ctx context.Context, order domain.Order) domain.OrderResult {
	if s.paymentDelay > 0 {
		select {
		case <-time.After(s.paymentDelay):
		case <-ctx.Done():
		}
	}

	if err := s.storage.SaveCurrentOrder(ctx, order); err != nil {
		s.logger.Warn("Could not persist current order", zap.Error(err))
	}

	result := s.submitRemote(ctx, order)

	if err := s.storage.AppendOrder(ctx, result); err != nil {
		s.logger.Warn("Could not append order history", zap.Error(err))
	}
	if result.Success {
		s.cart.Clear()
		if err := s.storage.ClearCurrentOrder(ctx); err != nil {
			s.logger.Warn("Could not clear current order", zap.Error(err))
		}
	}

	s.logger.Info("Checkout completed",
		zap.String("order_number", result.OrderNumber),
		zap.Bool("offline", result.Offline),
		zap.Float64("total", result.TotalAmount),
	)
	return result
}

func (s *Service) submitRemote(ctx context.Context, order domain.Order) domain.OrderResult {
	payload := buildInsertPayload(order)

	response, err := s.client.InsertOrder(ctx, payload)
	if err != nil {
		s.logger.Warn("Order submission failed, synthesizing offline confirmation", zap.Error(err))
		return s.normalizer.OfflineOrderResult(order, s.now())
	}

	return s.normalizer.OrderResult(response, order, s.now())
}

// History returns the locally persisted order log, newest last. Failures
// degrade to an empty list.
func (s *Service) History(ctx context.Context) []domain.OrderResult {
	history, err := s.storage.LoadOrders(ctx)
	if err != nil {
		if err != storage.ErrNotFound {
			s.logger.Warn("Could not load order history", zap.Error(err))
		}
		return []domain.OrderResult{}
	}
	return history
}

// SaveForLater stashes an order draft without submitting it.
func (s *Service) SaveForLater(ctx context.Context, order domain.Order) {
	if err := s.storage.SaveOrderForLater(ctx, order); err != nil {
		s.logger.Warn("Could not save order for later", zap.Error(err))
	}
}

// buildInsertPayload maps the internal order onto the POS ClientOrder
// schema: a nested client/billing/address/orderitems graph where the
// identity fields are fixed staging placeholders.
func buildInsertPayload(order domain.Order) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(order.Items))
	for _, line := range order.Items {
		items = append(items, map[string]interface{}{
			"productUid":       line.Product.UID,
			"productId":        line.Product.ID,
			"name":             line.Product.Name,
			"quantity":         line.Quantity,
			"unitPriceWithVat": line.Product.Price,
			"totalWithVat":     round2(line.Product.Price * float64(line.Quantity)),
			"note":             line.Instructions,
		})
	}

	return map[string]interface{}{
		"clientUid":   stagingClientUID,
		"locationUid": stagingLocationUID,
		"client": map[string]interface{}{
			"uid":   stagingClientUID,
			"name":  order.Customer.Name,
			"phone": order.Customer.Phone,
			"email": order.Customer.Email,
			"billing": map[string]interface{}{
				"name": order.Customer.Name,
				"address": map[string]interface{}{
					"street": "Table " + order.TableID,
					"city":   "On-site",
					"zip":    "00000",
				},
			},
		},
		"tableNumber":   order.TableID,
		"paymentMethod": order.PaymentMethod,
		"note":          order.Customer.Notes,
		"orderitems":    items,
		"totalWithVat":  order.Totals.Total,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
