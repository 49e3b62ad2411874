package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type CatalogClient interface {
	// FetchPage returns one page of products (1-based), an empty page means there are no more
	FetchPage(ctx context.Context, page, limit int) ([]domain.Product, error)
}
