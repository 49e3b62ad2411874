package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/app"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

var (
	cartAddr string
	addEntry domain.CartEntry
)

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Inspect and change the cart",
	Long: `Works on the configured slot directly, or on a running server when
--addr is given.`,
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartList,
}

var cartAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an entry to the cart",
	Long: `Example:
  storefront cart add --id 1 --title "Fjallraven Backpack" --price 109.95 \
    --image https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg`,
	Args: cobra.NoArgs,
	RunE: runCartAdd,
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove every entry with this product id",
	Args:  cobra.ExactArgs(1),
	RunE:  runCartRemove,
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE:  runCartClear,
}

var cartWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow cart changes on a running server",
	Args:  cobra.NoArgs,
	RunE:  runCartWatch,
}

// cartBackend is either the local slot or a remote server.
type cartBackend interface {
	List(ctx context.Context) ([]domain.CartEntry, error)
	Add(ctx context.Context, entry domain.CartEntry) ([]domain.CartEntry, error)
	Remove(ctx context.Context, id int64) (int, error)
	Clear(ctx context.Context) error
}

type localCart struct {
	store *service.CartStore
}

func (l localCart) List(ctx context.Context) ([]domain.CartEntry, error) {
	l.store.Initialize(ctx)
	return l.store.Entries(), nil
}

func (l localCart) Add(ctx context.Context, entry domain.CartEntry) ([]domain.CartEntry, error) {
	return l.store.AddEntrySnapshot(ctx, entry)
}

func (l localCart) Remove(ctx context.Context, id int64) (int, error) {
	return l.store.RemoveEntry(ctx, id)
}

func (l localCart) Clear(ctx context.Context) error {
	return l.store.Clear(ctx)
}

type remoteCart struct {
	client *handler.CartServiceClient
}

func (r remoteCart) List(ctx context.Context) ([]domain.CartEntry, error) {
	reply, err := r.client.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return reply.Entries, nil
}

func (r remoteCart) Add(ctx context.Context, entry domain.CartEntry) ([]domain.CartEntry, error) {
	reply, err := r.client.AddEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	return reply.Entries, nil
}

func (r remoteCart) Remove(ctx context.Context, id int64) (int, error) {
	reply, err := r.client.RemoveEntry(ctx, id)
	if err != nil {
		return 0, err
	}
	return reply.Removed, nil
}

func (r remoteCart) Clear(ctx context.Context) error {
	_, err := r.client.Clear(ctx)
	return err
}

func openCart(ctx context.Context) (cartBackend, func(), error) {
	if cartAddr != "" {
		conn, err := dial(cartAddr)
		if err != nil {
			return nil, nil, err
		}
		return remoteCart{client: handler.NewCartServiceClient(conn)}, func() { conn.Close() }, nil
	}

	slot, closeSlot, err := app.OpenSlot(ctx, cfg.Storage, log)
	if err != nil {
		return nil, nil, err
	}
	store := service.NewCartStore(slot, cfg.Storage.SlotKey, log)
	return localCart{store: store}, func() { closeSlot() }, nil
}

func dial(addr string) (*grpc.ClientConn, error) {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return conn, nil
}

func runCartList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cart, closeCart, err := openCart(ctx)
	if err != nil {
		return err
	}
	defer closeCart()

	entries, err := cart.List(ctx)
	if err != nil {
		return err
	}
	printCart(cmd.OutOrStdout(), entries)
	return nil
}

func runCartAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cart, closeCart, err := openCart(ctx)
	if err != nil {
		return err
	}
	defer closeCart()

	entries, err := cart.Add(ctx, addEntry)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s added to cart\n", strings.TrimSpace(addEntry.Title))
	printCart(cmd.OutOrStdout(), entries)
	return nil
}

func runCartRemove(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid id %q", args[0])
	}

	ctx, cancel := signalContext()
	defer cancel()

	cart, closeCart, err := openCart(ctx)
	if err != nil {
		return err
	}
	defer closeCart()

	removed, err := cart.Remove(ctx, id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("product %d is not in the cart", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
	return nil
}

func runCartClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cart, closeCart, err := openCart(ctx)
	if err != nil {
		return err
	}
	defer closeCart()

	if err := cart.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
	return nil
}

func runCartWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	addr := cartAddr
	if addr == "" {
		addr = cfg.GRPC.Addr
	}
	conn, err := dial(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	stream, err := handler.NewCartServiceClient(conn).Watch(ctx)
	if err != nil {
		return err
	}
	for {
		reply, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		printCart(cmd.OutOrStdout(), reply.Entries)
		fmt.Fprintln(cmd.OutOrStdout())
	}
}

func printCart(out io.Writer, entries []domain.CartEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "cart is empty")
		return
	}

	var total float64
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTITLE\tPRICE")
	for i, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\t%.2f\n", i+1, e.ID, e.Title, e.Price)
		total += e.Price
	}
	fmt.Fprintf(w, "\t\tTOTAL\t%.2f\n", total)
	w.Flush()
}
