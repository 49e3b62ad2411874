package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/logger"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Product listing and persistent shopping cart",
	Long: `storefront browses a paginated product catalog and keeps a shopping
cart in a durable slot (sqlite, redis, mysql or memory).

Run "storefront serve" to expose the HTTP and gRPC APIs, or use the
products and cart commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		log, err = logger.New(logger.Options{
			Service:     cfg.Telemetry.ServiceName,
			Level:       level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "storefront.yaml", "Config file (missing file means defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	productsCmd.Flags().IntVar(&productPages, "pages", 1, "Number of catalog pages to load")
	productsCmd.Flags().StringVar(&productFilter, "filter", "", "Only show products whose title contains this text")
	productsCmd.Flags().Int64Var(&productAdd, "add", 0, "Add the product with this id to the cart")

	cartCmd.PersistentFlags().StringVar(&cartAddr, "addr", "", "gRPC address of a running server (default: use the local slot)")
	cartAddCmd.Flags().Int64Var(&addEntry.ID, "id", 0, "Product id")
	cartAddCmd.Flags().StringVar(&addEntry.Title, "title", "", "Product title")
	cartAddCmd.Flags().Float64Var(&addEntry.Price, "price", 0, "Unit price")
	cartAddCmd.Flags().StringVar(&addEntry.Image, "image", "", "Absolute image URL")
	cartAddCmd.Flags().StringVar(&addEntry.Category, "category", "", "Product category")
	cartAddCmd.Flags().StringVar(&addEntry.Description, "description", "", "Product description")

	cartCmd.AddCommand(cartListCmd)
	cartCmd.AddCommand(cartAddCmd)
	cartCmd.AddCommand(cartRemoveCmd)
	cartCmd.AddCommand(cartClearCmd)
	cartCmd.AddCommand(cartWatchCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(cartCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
