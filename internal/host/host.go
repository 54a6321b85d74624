package host

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/auto-dns/docker-traceability/internal/domain"
	"github.com/rs/zerolog"
)

var ErrAlreadyLoaded = errors.New("host is already loaded")

// Item is a live entry of the item registry.
type Item interface {
	ItemName() string
	ItemKind() domain.ItemKind
}

// Decoder turns a persisted item into a live one.
type Decoder func(item domain.Item) (Item, error)

// Hook runs once after the host has loaded.
type Hook func(ctx context.Context)

type itemLister interface {
	ListItems(ctx context.Context) ([]domain.Item, error)
}

// Host owns the process lifecycle and the in-memory item registry.
type Host struct {
	logger zerolog.Logger
	store  itemLister

	mu       sync.RWMutex
	items    map[string]Item
	decoders map[domain.ItemKind]Decoder
	hooks    []Hook

	loading atomic.Bool
	ready   atomic.Bool
}

func New(store itemLister, logger zerolog.Logger) *Host {
	return &Host{
		logger:   logger,
		store:    store,
		items:    make(map[string]Item),
		decoders: make(map[domain.ItemKind]Decoder),
	}
}

func (h *Host) RegisterKind(kind domain.ItemKind, decoder Decoder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decoders[kind] = decoder
}

func (h *Host) OnLoaded(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Load reads every persisted item into the registry, marks the host ready and
// runs the startup hooks in registration order.
func (h *Host) Load(ctx context.Context) error {
	if !h.loading.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	persisted, err := h.store.ListItems(ctx)
	if err != nil {
		h.loading.Store(false)
		return fmt.Errorf("load items: %w", err)
	}

	h.mu.Lock()
	for _, p := range persisted {
		item, err := h.decode(p)
		if err != nil {
			h.logger.Error().Err(err).Msgf("Failed to decode item %s", p.Name)
			continue
		}
		h.items[p.Name] = item
	}
	hooks := make([]Hook, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	h.ready.Store(true)
	h.logger.Info().Msgf("Host loaded with %d items", len(persisted))

	for _, hook := range hooks {
		hook(ctx)
	}
	return nil
}

// decode must be called with h.mu held.
func (h *Host) decode(p domain.Item) (Item, error) {
	decoder, ok := h.decoders[p.Kind]
	if !ok {
		return NewGenericItem(p), nil
	}
	return decoder(p)
}

func (h *Host) Ready() bool {
	if h == nil {
		return false
	}
	return h.ready.Load()
}

// GetItem returns nil when no item is registered under name.
func (h *Host) GetItem(name string) Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.items[name]
}

// PutItem registers item under its name. If an item of the same kind already
// holds the name it is returned instead.
func (h *Host) PutItem(item Item) (Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.items[item.ItemName()]; ok {
		if existing.ItemKind() != item.ItemKind() {
			return nil, domain.NewItemConflictError(item.ItemName(), existing.ItemKind(), item.ItemKind())
		}
		return existing, nil
	}
	h.items[item.ItemName()] = item
	return item, nil
}

// Items returns the registered items sorted by name.
func (h *Host) Items() []Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	items := make([]Item, 0, len(h.items))
	for _, item := range h.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ItemName() < items[j].ItemName() })
	return items
}
