package cart

import (
	"context"
	"sync"
	"time"

	"qrmenu/internal/domain"
	"qrmenu/internal/storage"

	"go.uber.org/zap"
)

// Subscriber receives the full cart state after every mutation.
type Subscriber func(domain.CartState)

// Store is the single process-wide cart. Lines merge by product id and
// keep their insertion position. Every mutation publishes the new state
// to all subscribers synchronously, in registration order, before the
// mutating call returns; the persistent mirror is written afterwards and
// is best-effort.
type Store struct {
	mu      sync.Mutex
	lines   []domain.CartLine
	subs    map[int]Subscriber
	nextSub int

	storage *storage.Store
	logger  *zap.Logger
	now     func() time.Time
}

func NewStore(st *storage.Store, logger *zap.Logger) *Store {
	s := &Store{
		subs:    make(map[int]Subscriber),
		storage: st,
		logger:  logger,
		now:     time.Now,
	}
	s.hydrate()
	return s
}

// hydrate restores the persisted cart at construction.
func (s *Store) hydrate() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	state, err := s.storage.LoadCart(ctx)
	if err != nil {
		if err != storage.ErrNotFound {
			s.logger.Warn("Could not restore persisted cart", zap.Error(err))
		}
		return
	}
	s.lines = state
}

// Subscribe registers a subscriber and returns its id for Unsubscribe.
// The current state is delivered immediately so late subscribers start
// from the latest published value.
func (s *Store) Subscribe(fn Subscriber) int {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	state := s.snapshot()
	s.mu.Unlock()

	fn(state)
	return id
}

func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

// Add merges quantity into an existing line with the same product id or
// appends a new line stamped with the add time.
func (s *Store) Add(product domain.Product, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}

	s.mutate(func() {
		for i := range s.lines {
			if s.lines[i].Product.ID == product.ID {
				s.lines[i].Quantity += quantity
				return
			}
		}
		s.lines = append(s.lines, domain.CartLine{
			Product:  product,
			Quantity: quantity,
			AddedAt:  s.now(),
		})
	})
}

// Remove drops the line for the given product id.
func (s *Store) Remove(productID int) {
	s.mutate(func() {
		s.removeLocked(productID)
	})
}

// SetQuantity sets the quantity on the matching line; zero or negative
// removes the line entirely.
func (s *Store) SetQuantity(productID, quantity int) {
	s.mutate(func() {
		if quantity <= 0 {
			s.removeLocked(productID)
			return
		}
		for i := range s.lines {
			if s.lines[i].Product.ID == productID {
				s.lines[i].Quantity = quantity
				return
			}
		}
	})
}

// SetInstructions attaches free-text special instructions to a line.
func (s *Store) SetInstructions(productID int, instructions string) {
	s.mutate(func() {
		for i := range s.lines {
			if s.lines[i].Product.ID == productID {
				s.lines[i].Instructions = instructions
				return
			}
		}
	})
}

// Clear empties the cart and erases the persisted entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	state := s.snapshot()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.storage.ClearCart(ctx); err != nil {
		s.logger.Warn("Could not erase persisted cart", zap.Error(err))
	}
}

// Lines returns a copy of the current cart state.
func (s *Store) Lines() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Total returns the current cart total.
func (s *Store) Total() float64 {
	return s.Lines().Total()
}

// ItemCount returns the sum of quantities across all lines.
func (s *Store) ItemCount() int {
	return s.Lines().ItemCount()
}

func (s *Store) removeLocked(productID int) {
	for i := range s.lines {
		if s.lines[i].Product.ID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// mutate applies fn under the lock, then publishes the new state to all
// subscribers in the calling goroutine before persisting it.
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	state := s.snapshot()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
	s.persist(state)
}

func (s *Store) persist(state domain.CartState) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.storage.SaveCart(ctx, state); err != nil {
		s.logger.Warn("Could not persist cart", zap.Error(err))
	}
}

// snapshot copies the line slice so published states are immutable from
// the subscriber's point of view. Callers must hold the lock.
func (s *Store) snapshot() domain.CartState {
	state := make(domain.CartState, len(s.lines))
	copy(state, s.lines)
	return state
}

// subscribersLocked returns subscribers in registration order. Callers
// must hold the lock.
func (s *Store) subscribersLocked() []Subscriber {
	subs := make([]Subscriber, 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}
