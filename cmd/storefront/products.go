package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/app"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

var (
	productPages  int
	productFilter string
	productAdd    int64
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List catalog products",
	Long: `Loads one or more catalog pages and prints the products, optionally
filtered by title. With --add the chosen product goes into the cart.

Example:
  storefront products --pages 2 --filter shirt
  storefront products --add 3`,
	Args: cobra.NoArgs,
	RunE: runProducts,
}

func runProducts(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client := catalog.NewHTTPClient(catalog.Config{
		BaseURL:         cfg.Catalog.BaseURL,
		Timeout:         cfg.Catalog.Timeout,
		BreakerFailures: cfg.Catalog.BreakerFailures,
		BreakerCooldown: cfg.Catalog.BreakerCooldown,
	}, log)

	var cart *service.CartStore
	if productAdd > 0 {
		slot, closeSlot, err := app.OpenSlot(ctx, cfg.Storage, log)
		if err != nil {
			return err
		}
		defer closeSlot()
		cart = service.NewCartStore(slot, cfg.Storage.SlotKey, log)
	}

	listing := service.NewListing(client, cart, cfg.Catalog.PageSize)
	if err := listing.EnsureLoaded(ctx); err != nil {
		return err
	}
	for page := 1; page < productPages && listing.HasNextPage(); page++ {
		if _, err := listing.LoadMore(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	printProducts(out, listing.Products(productFilter))

	if productAdd > 0 {
		if _, err := listing.Select(productAdd); err != nil {
			return err
		}
		entry, err := listing.Confirm(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s added to cart\n", entry.Title)
	}
	return nil
}

func printProducts(out io.Writer, products []domain.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "no products")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tPRICE\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%s\n", p.ID, p.Title, p.Price, p.Category)
	}
	w.Flush()
}
