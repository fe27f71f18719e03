package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"qrmenu/internal/cart"
	"qrmenu/internal/config"
	"qrmenu/internal/domain"
	"qrmenu/internal/normalize"
	"qrmenu/internal/pos"
	"qrmenu/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var orderNumberPattern = regexp.MustCompile(`^HB\d{6}\d{3}$`)

type staticTokens struct{}

func (staticTokens) Token() (string, bool)                  { return "static-token-0123456789", true }
func (staticTokens) IsValid() bool                          { return true }
func (staticTokens) RefreshInFlight() bool                  { return false }
func (staticTokens) RefreshToken(ctx context.Context) error { return nil }

type fixture struct {
	service *Service
	cart    *cart.Store
	store   *storage.Store
}

func newFixture(t *testing.T, posURL string) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	st := storage.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	cartStore := cart.NewStore(st, zap.NewNop())

	client := pos.NewClient(config.POSConfig{
		BaseURL: posURL,
		Timeout: 2 * time.Second,
	}, staticTokens{}, zap.NewNop())

	service := NewService(client, normalize.New(posURL, zap.NewNop()), st, cartStore, 0, zap.NewNop())
	return &fixture{service: service, cart: cartStore, store: st}
}

func testProduct(id int, price float64) domain.Product {
	return domain.Product{ID: id, UID: "uid-1", Name: "Classic Burger", Price: price, Available: true}
}

func TestBuildOrderTotals(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")
	f.cart.Add(testProduct(1, 10.00), 2)

	order := f.service.BuildOrder("7", domain.CustomerInfo{Name: "Ada"}, "card")

	assert.Equal(t, 20.00, order.Totals.Subtotal)
	assert.Equal(t, 2.00, order.Totals.ServiceFee)
	assert.Equal(t, 1.60, order.Totals.Tax)
	assert.Equal(t, 23.60, order.Totals.Total)
	assert.Equal(t, normalize.FixedEstimatedMinutes, order.EstimatedTime)
	assert.Equal(t, "7", order.TableID)
	assert.Len(t, order.Items, 1)
}

func TestBuildOrderTotalsRounding(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")
	f.cart.Add(testProduct(1, 3.33), 3)

	order := f.service.BuildOrder("1", domain.CustomerInfo{}, "cash")

	// 9.99 subtotal, 1.00 fee (0.999 rounded), 0.80 tax (0.7992 rounded).
	assert.Equal(t, 9.99, order.Totals.Subtotal)
	assert.Equal(t, 1.00, order.Totals.ServiceFee)
	assert.Equal(t, 0.80, order.Totals.Tax)
	assert.Equal(t, 11.79, order.Totals.Total)
}

func TestSubmitSuccessClearsCartAndRecordsHistory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ClientOrder/Insert", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"payload": map[string]interface{}{
				"uid":         "remote-order-42",
				"orderNumber": "HB123456789",
				"status":      "confirmed",
			},
		})
	}))
	defer ts.Close()

	f := newFixture(t, ts.URL)
	f.cart.Add(testProduct(1, 10.00), 1)
	order := f.service.BuildOrder("3", domain.CustomerInfo{Name: "Ada"}, "card")

	result := f.service.Submit(context.Background(), order)

	assert.True(t, result.Success)
	assert.False(t, result.Offline)
	assert.Equal(t, "remote-order-42", result.OrderID)
	assert.Equal(t, "HB123456789", result.OrderNumber)
	assert.Equal(t, 0, f.cart.ItemCount())

	history := f.service.History(context.Background())
	require.Len(t, history, 1)
	assert.Equal(t, "remote-order-42", history[0].OrderID)

	// The in-flight snapshot is cleared once the order completes.
	_, err := f.store.LoadCurrentOrder(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSubmitOfflineFallbackOnTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	f := newFixture(t, ts.URL)
	ts.Close() // every request now fails at dial time

	f.cart.Add(testProduct(1, 10.00), 1)
	order := f.service.BuildOrder("3", domain.CustomerInfo{Name: "Ada"}, "cash")

	result := f.service.Submit(context.Background(), order)

	assert.True(t, result.Success)
	assert.True(t, result.Offline)
	assert.Equal(t, "pending_sync", result.Status)
	assert.Regexp(t, orderNumberPattern, result.OrderNumber)
	assert.Equal(t, order.Totals.Total, result.TotalAmount)

	// Offline results still count as completed: history grows, cart empties.
	assert.Len(t, f.service.History(context.Background()), 1)
	assert.Equal(t, 0, f.cart.ItemCount())
}

func TestSubmitOfflineFallbackOnServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	f := newFixture(t, ts.URL)
	f.cart.Add(testProduct(1, 10.00), 1)
	order := f.service.BuildOrder("3", domain.CustomerInfo{}, "mock")

	result := f.service.Submit(context.Background(), order)

	assert.True(t, result.Offline)
	assert.Regexp(t, orderNumberPattern, result.OrderNumber)
}

func TestSubmitRejectedOrderKeepsCart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"payload": map[string]interface{}{"uid": "rejected-1", "isSuccess": false},
		})
	}))
	defer ts.Close()

	f := newFixture(t, ts.URL)
	f.cart.Add(testProduct(1, 10.00), 1)
	order := f.service.BuildOrder("3", domain.CustomerInfo{}, "card")

	result := f.service.Submit(context.Background(), order)

	assert.False(t, result.Success)
	assert.False(t, result.Offline)
	assert.Equal(t, 1, f.cart.ItemCount())
}

func TestHistoryEmptyWhenNothingStored(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")
	history := f.service.History(context.Background())
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestSaveForLaterRoundTrip(t *testing.T) {
	f := newFixture(t, "http://unused.invalid")
	f.cart.Add(testProduct(1, 10.00), 1)
	f.cart.SetInstructions(1, "no onions")
	order := f.service.BuildOrder("5", domain.CustomerInfo{Name: "Ada"}, "card")

	f.service.SaveForLater(context.Background(), order)

	saved, err := f.store.LoadSavedOrder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5", saved.TableID)
	assert.Equal(t, order.Totals.Total, saved.Totals.Total)
}

func TestInsertPayloadShape(t *testing.T) {
	order := domain.Order{
		TableID:       "9",
		Customer:      domain.CustomerInfo{Name: "Ada", Phone: "555", Notes: "rush"},
		PaymentMethod: "card",
		Items: []domain.CartLine{
			{Product: testProduct(1, 4.50), Quantity: 2, Instructions: "extra sauce"},
		},
		Totals: domain.OrderTotals{Total: 9.72},
	}

	payload := buildInsertPayload(order)

	assert.Equal(t, "9", payload["tableNumber"])
	assert.Equal(t, 9.72, payload["totalWithVat"])

	items, ok := payload["orderitems"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0]["quantity"])
	assert.Equal(t, 9.00, items[0]["totalWithVat"])
	assert.Equal(t, "extra sauce", items[0]["note"])

	client, ok := payload["client"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", client["name"])
}
