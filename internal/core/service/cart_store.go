package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const DefaultSlotKey = "cart"

// CartStore holds the cart for one application instance and mirrors every
// change into a single durable slot.
type CartStore struct {
	slot port.SlotRepository
	key  string
	log  *zap.Logger

	once sync.Once

	mu      sync.Mutex
	entries []domain.CartEntry
	subs    map[chan []domain.CartEntry]struct{}
}

func NewCartStore(slot port.SlotRepository, key string, log *zap.Logger) *CartStore {
	if key == "" {
		key = DefaultSlotKey
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CartStore{
		slot:    slot,
		key:     key,
		log:     log.Named("cart"),
		entries: []domain.CartEntry{},
		subs:    make(map[chan []domain.CartEntry]struct{}),
	}
}

// Initialize hydrates the store from the slot. Only the first call reads.
func (s *CartStore) Initialize(ctx context.Context) {
	s.once.Do(func() {
		s.load(ctx)
	})
}

// Reload discards the in-memory cart and reads the slot again.
func (s *CartStore) Reload(ctx context.Context) {
	s.once.Do(func() {})
	s.load(ctx)
}

func (s *CartStore) load(ctx context.Context) {
	entries := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.publish()
}

// read never fails: anything unreadable is an empty cart.
func (s *CartStore) read(ctx context.Context) []domain.CartEntry {
	data, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, port.ErrSlotEmpty) {
		return []domain.CartEntry{}
	}
	if err != nil {
		s.log.Warn("read cart slot failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return []domain.CartEntry{}
	}

	var stored []domain.CartEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		s.log.Warn("malformed cart slot, starting empty", zap.String("key", s.key), zap.Error(err))
		return []domain.CartEntry{}
	}

	// stored entries are taken as written; validation happens on AddEntry
	entries := make([]domain.CartEntry, 0, len(stored))
	for _, e := range stored {
		entries = append(entries, e.Normalize())
	}
	return entries
}

// AddEntry appends entry to the cart. The slot is written before the
// in-memory cart changes, so a failed write leaves both untouched.
func (s *CartStore) AddEntry(ctx context.Context, entry domain.CartEntry) error {
	_, err := s.AddEntrySnapshot(ctx, entry)
	return err
}

// AddEntrySnapshot is AddEntry returning the cart exactly as this call
// committed it, before any later writer touches it.
func (s *CartStore) AddEntrySnapshot(ctx context.Context, entry domain.CartEntry) ([]domain.CartEntry, error) {
	entry = entry.Normalize()
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	s.Initialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.entries), entry)
	if err := s.persist(ctx, next); err != nil {
		return nil, err
	}

	s.entries = next
	s.publish()

	s.log.Debug("entry added", zap.Int64("id", entry.ID), zap.Int("size", len(next)))
	return slices.Clone(next), nil
}

// RemoveEntry drops every entry with the given id and reports how many went.
func (s *CartStore) RemoveEntry(ctx context.Context, id int64) (int, error) {
	_, removed, err := s.RemoveEntrySnapshot(ctx, id)
	return removed, err
}

// RemoveEntrySnapshot is RemoveEntry also returning the cart as this call
// left it.
func (s *CartStore) RemoveEntrySnapshot(ctx context.Context, id int64) ([]domain.CartEntry, int, error) {
	s.Initialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	next, removed := domain.RemoveByID(s.entries, id)
	if removed == 0 {
		return slices.Clone(s.entries), 0, nil
	}

	if err := s.persist(ctx, next); err != nil {
		return nil, 0, err
	}

	s.entries = next
	s.publish()

	s.log.Debug("entries removed", zap.Int64("id", id), zap.Int("removed", removed))
	return slices.Clone(next), removed, nil
}

func (s *CartStore) Clear(ctx context.Context) error {
	s.Initialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.slot.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear cart slot: %w", err)
	}

	s.entries = []domain.CartEntry{}
	s.publish()
	return nil
}

// Entries returns a copy of the cart in insertion order.
func (s *CartStore) Entries() []domain.CartEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Subscribe streams cart snapshots, starting with the current one. A slow
// reader only sees the latest snapshot. The channel is closed once ctx is done.
func (s *CartStore) Subscribe(ctx context.Context) <-chan []domain.CartEntry {
	ch := make(chan []domain.CartEntry, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- slices.Clone(s.entries)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// persist must be called with mu held.
func (s *CartStore) persist(ctx context.Context, entries []domain.CartEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.slot.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("write cart slot: %w", err)
	}
	return nil
}

// publish must be called with mu held.
func (s *CartStore) publish() {
	for ch := range s.subs {
		snapshot := slices.Clone(s.entries)
		select {
		case ch <- snapshot:
		default:
			// drop the stale snapshot the reader has not picked up yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
