package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"qrmenu/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Fixed keys for each persisted concern. The blobs are plain JSON with no
// schema versioning; each concern owns its own key.
const (
	keyAuthToken    = "qrmenu:auth:token"
	keyAuthExpiry   = "qrmenu:auth:expiry"
	keyCart         = "qrmenu:cart"
	keyOrderHistory = "qrmenu:orders:history"
	keyCurrentOrder = "qrmenu:orders:current"
	keySavedOrder   = "qrmenu:orders:saved"
)

var ErrNotFound = errors.New("storage: key not found")

// Store persists the app's local state: the POS credential, the cart
// snapshot, and the order history. Callers decide whether a write
// failure is fatal; the store only reports it.
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// SaveCredential writes the token and its expiry under separate keys,
// mirroring how the two values are read back independently.
func (s *Store) SaveCredential(ctx context.Context, cred domain.Credential) error {
	if err := s.rdb.Set(ctx, keyAuthToken, cred.Token, 0).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	expiry := strconv.FormatInt(cred.ExpiresAt, 10)
	if err := s.rdb.Set(ctx, keyAuthExpiry, expiry, 0).Err(); err != nil {
		return fmt.Errorf("save token expiry: %w", err)
	}
	return nil
}

func (s *Store) LoadCredential(ctx context.Context) (domain.Credential, error) {
	token, err := s.rdb.Get(ctx, keyAuthToken).Result()
	if err == redis.Nil {
		return domain.Credential{}, ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("load token: %w", err)
	}

	expiryStr, err := s.rdb.Get(ctx, keyAuthExpiry).Result()
	if err == redis.Nil {
		return domain.Credential{}, ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("load token expiry: %w", err)
	}

	expiry, err := strconv.ParseInt(expiryStr, 10, 64)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("parse token expiry: %w", err)
	}

	return domain.Credential{Token: token, ExpiresAt: expiry}, nil
}

func (s *Store) ClearCredential(ctx context.Context) error {
	if err := s.rdb.Del(ctx, keyAuthToken, keyAuthExpiry).Err(); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

// SaveCart mirrors the full cart state after a mutation.
func (s *Store) SaveCart(ctx context.Context, state domain.CartState) error {
	return s.setJSON(ctx, keyCart, state)
}

func (s *Store) LoadCart(ctx context.Context) (domain.CartState, error) {
	var state domain.CartState
	if err := s.getJSON(ctx, keyCart, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) ClearCart(ctx context.Context) error {
	if err := s.rdb.Del(ctx, keyCart).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// AppendOrder adds a completed checkout result to the local history log.
func (s *Store) AppendOrder(ctx context.Context, result domain.OrderResult) error {
	history, err := s.LoadOrders(ctx)
	if err != nil && err != ErrNotFound {
		return err
	}
	history = append(history, result)
	return s.setJSON(ctx, keyOrderHistory, history)
}

func (s *Store) LoadOrders(ctx context.Context) ([]domain.OrderResult, error) {
	var history []domain.OrderResult
	if err := s.getJSON(ctx, keyOrderHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}

// SaveCurrentOrder keeps the in-flight checkout snapshot so a reloaded
// client can resume the confirmation view.
func (s *Store) SaveCurrentOrder(ctx context.Context, order domain.Order) error {
	return s.setJSON(ctx, keyCurrentOrder, order)
}

func (s *Store) LoadCurrentOrder(ctx context.Context) (domain.Order, error) {
	var order domain.Order
	if err := s.getJSON(ctx, keyCurrentOrder, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Store) ClearCurrentOrder(ctx context.Context) error {
	if err := s.rdb.Del(ctx, keyCurrentOrder).Err(); err != nil {
		return fmt.Errorf("clear current order: %w", err)
	}
	return nil
}

// SaveOrderForLater stashes an order draft the customer chose to keep.
func (s *Store) SaveOrderForLater(ctx context.Context, order domain.Order) error {
	return s.setJSON(ctx, keySavedOrder, order)
}

func (s *Store) LoadSavedOrder(ctx context.Context) (domain.Order, error) {
	var order domain.Order
	if err := s.getJSON(ctx, keySavedOrder, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v interface{}) error {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}
