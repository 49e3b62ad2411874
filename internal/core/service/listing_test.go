package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Mock CatalogClient serving fixed pages
type mockCatalog struct {
	mu    sync.Mutex
	pages [][]domain.Product
	err   error
	calls []int
}

func (m *mockCatalog) FetchPage(ctx context.Context, page, limit int) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, page)
	if m.err != nil {
		return nil, m.err
	}
	if page < 1 || page > len(m.pages) {
		return []domain.Product{}, nil
	}
	return m.pages[page-1], nil
}

func product(id int64, title string) domain.Product {
	e := entry(id, title)
	return domain.Product{ID: e.ID, Title: e.Title, Price: e.Price, Image: e.Image, Category: "clothing"}
}

func newTestListing(pages ...[]domain.Product) (*Listing, *mockCatalog, *CartStore) {
	catalog := &mockCatalog{pages: pages}
	cart := NewCartStore(newMockSlotRepo(), "", nil)
	return NewListing(catalog, cart, 2), catalog, cart
}

func TestListing_FilterIsCaseInsensitiveSubstring(t *testing.T) {
	listing, _, _ := newTestListing([]domain.Product{product(1, "Red Shirt"), product(2, "Blue Hat")})
	require.NoError(t, listing.EnsureLoaded(context.Background()))

	got := listing.Products("red")
	require.Len(t, got, 1)
	assert.Equal(t, "Red Shirt", got[0].Title)

	assert.Len(t, listing.Products("RED"), 1)
	assert.Len(t, listing.Products("h"), 2)
	assert.Empty(t, listing.Products("green"))
}

func TestListing_EmptyFilterShowsAll(t *testing.T) {
	listing, _, _ := newTestListing([]domain.Product{product(1, "Red Shirt"), product(2, "Blue Hat")})
	require.NoError(t, listing.EnsureLoaded(context.Background()))

	assert.Len(t, listing.Products(""), 2)
}

func TestListing_LoadMoreAccumulatesUntilEmptyPage(t *testing.T) {
	listing, catalog, _ := newTestListing(
		[]domain.Product{product(1, "Red Shirt"), product(2, "Blue Hat")},
		[]domain.Product{product(3, "Green Socks")},
	)
	ctx := context.Background()

	assert.False(t, listing.Loaded())
	assert.True(t, listing.HasNextPage())

	require.NoError(t, listing.EnsureLoaded(ctx))
	require.NoError(t, listing.EnsureLoaded(ctx))
	assert.Len(t, listing.Products(""), 2)

	n, err := listing.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, listing.Products(""), 3)
	assert.True(t, listing.HasNextPage())

	n, err = listing.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, listing.HasNextPage())

	// exhausted listings stop asking
	_, err = listing.LoadMore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, catalog.calls)
}

func TestListing_CatalogFailure(t *testing.T) {
	listing, catalog, _ := newTestListing()
	catalog.err = errors.New("503 from upstream")

	err := listing.EnsureLoaded(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
	assert.ErrorIs(t, err, catalog.err, "the upstream cause stays in the chain")
	assert.False(t, listing.Loaded())
	assert.True(t, listing.HasNextPage())
}

func TestListing_SelectConfirm(t *testing.T) {
	listing, _, cart := newTestListing([]domain.Product{product(1, "Red Shirt"), product(2, "Blue Hat")})
	ctx := context.Background()
	require.NoError(t, listing.EnsureLoaded(ctx))

	p, err := listing.Select(2)
	require.NoError(t, err)
	assert.Equal(t, "Blue Hat", p.Title)

	selected, ok := listing.Selected()
	require.True(t, ok)
	assert.Equal(t, int64(2), selected.ID)

	added, err := listing.Confirm(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), added.ID)
	assert.Equal(t, "clothing", added.Category)

	_, ok = listing.Selected()
	assert.False(t, ok, "confirm closes the dialog")

	entries := cart.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Blue Hat", entries[0].Title)
}

func TestListing_Dismiss(t *testing.T) {
	listing, _, cart := newTestListing([]domain.Product{product(1, "Red Shirt")})
	ctx := context.Background()
	require.NoError(t, listing.EnsureLoaded(ctx))

	_, err := listing.Select(1)
	require.NoError(t, err)
	listing.Dismiss()

	_, err = listing.Confirm(ctx)
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, 0, cart.Len())
}

func TestListing_SelectUnknownProduct(t *testing.T) {
	listing, _, _ := newTestListing([]domain.Product{product(1, "Red Shirt")})
	require.NoError(t, listing.EnsureLoaded(context.Background()))

	_, err := listing.Select(42)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestListing_ConfirmKeepsSelectionOnFailure(t *testing.T) {
	bad := domain.Product{ID: 5, Title: "No Image", Price: 1}
	listing, _, _ := newTestListing([]domain.Product{bad})
	ctx := context.Background()
	require.NoError(t, listing.EnsureLoaded(ctx))

	_, err := listing.Select(5)
	require.NoError(t, err)

	_, err = listing.Confirm(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)

	_, ok := listing.Selected()
	assert.True(t, ok)
}
