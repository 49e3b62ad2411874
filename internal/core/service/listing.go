package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const DefaultPageSize = 10

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrProductNotFound    = errors.New("product not found")
	ErrNoSelection        = errors.New("no product selected")
)

// Listing is one view over the catalog: the pages fetched so far, the
// filter applied to them and the product waiting for confirmation.
type Listing struct {
	catalog  port.CatalogClient
	cart     *CartStore
	pageSize int

	fetchMu sync.Mutex

	mu        sync.Mutex
	products  []domain.Product
	nextPage  int
	loaded    bool
	exhausted bool
	selected  *domain.Product
}

func NewListing(catalog port.CatalogClient, cart *CartStore, pageSize int) *Listing {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Listing{
		catalog:  catalog,
		cart:     cart,
		pageSize: pageSize,
		nextPage: 1,
	}
}

// EnsureLoaded fetches the first page unless something was loaded already.
func (l *Listing) EnsureLoaded(ctx context.Context) error {
	if l.Loaded() {
		return nil
	}
	_, err := l.loadNext(ctx, true)
	return err
}

// LoadMore fetches the next page and returns how many products it added.
func (l *Listing) LoadMore(ctx context.Context) (int, error) {
	return l.loadNext(ctx, false)
}

func (l *Listing) loadNext(ctx context.Context, onlyFirst bool) (int, error) {
	l.fetchMu.Lock()
	defer l.fetchMu.Unlock()

	l.mu.Lock()
	if l.exhausted || (onlyFirst && l.loaded) {
		l.mu.Unlock()
		return 0, nil
	}
	page := l.nextPage
	l.mu.Unlock()

	products, err := l.catalog.FetchPage(ctx, page, l.pageSize)
	if err != nil {
		return 0, fmt.Errorf("%w: page %d: %w", ErrCatalogUnavailable, page, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.loaded = true
	if len(products) == 0 {
		l.exhausted = true
		return 0, nil
	}
	l.products = append(l.products, products...)
	l.nextPage = page + 1
	return len(products), nil
}

func (l *Listing) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *Listing) HasNextPage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.exhausted
}

// Products returns the fetched products whose title contains filter,
// ignoring case. An empty filter matches everything.
func (l *Listing) Products(filter string) []domain.Product {
	l.mu.Lock()
	defer l.mu.Unlock()

	needle := strings.ToLower(filter)
	out := make([]domain.Product, 0, len(l.products))
	for _, p := range l.products {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}

// Select opens the add-to-cart confirmation for a fetched product.
func (l *Listing) Select(id int64) (domain.Product, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.products {
		if p.ID == id {
			selected := p
			l.selected = &selected
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
}

func (l *Listing) Selected() (domain.Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.selected == nil {
		return domain.Product{}, false
	}
	return *l.selected, true
}

func (l *Listing) Dismiss() {
	l.mu.Lock()
	l.selected = nil
	l.mu.Unlock()
}

// Confirm adds the selected product to the cart. The selection survives a
// failed add so the caller can retry or dismiss.
func (l *Listing) Confirm(ctx context.Context) (domain.CartEntry, error) {
	l.mu.Lock()
	if l.selected == nil {
		l.mu.Unlock()
		return domain.CartEntry{}, ErrNoSelection
	}
	product := *l.selected
	l.mu.Unlock()

	entry := product.Entry()
	if err := l.cart.AddEntry(ctx, entry); err != nil {
		return domain.CartEntry{}, err
	}

	l.mu.Lock()
	if l.selected != nil && l.selected.ID == product.ID {
		l.selected = nil
	}
	l.mu.Unlock()

	return entry.Normalize(), nil
}
