package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beesaferoot/rental-booking/booking"
	"github.com/beesaferoot/rental-booking/internal/server"
)

func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve availability, quotes and booking checks over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := a.cfg.ServerAddr
			if cmd.Flags().Changed("addr") {
				addr, _ = cmd.Flags().GetString("addr")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			src, err := a.source(ctx)
			if err != nil {
				return err
			}
			snapshots := booking.NewSnapshots(booking.Catalog{})
			refresher := server.NewRefresher(src, snapshots, a.cfg.RefreshInterval, a.log)
			if err := refresher.RefreshOnce(ctx); err != nil {
				return fmt.Errorf("failed to load initial catalog: %w", err)
			}
			go refresher.Run(ctx)

			srv := server.New(snapshots, a.cfg.AllowedOrigins, a.log)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address (overrides SERVER_ADDR)")
	return cmd
}

// RootCmd assembles the rental-booking command tree.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rental-booking",
		Short:         "Availability, pricing and booking for rental properties",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging and SQL output")
	root.PersistentFlags().Bool("offline", false, "Use the local catalog cache even when an API is configured")

	root.AddCommand(
		InitCmd(),
		MigrateCmd(),
		ImportCmd(),
		SyncCmd(),
		AvailabilityCmd(),
		QuoteCmd(),
		CheckCmd(),
		BookCmd(),
		ServeCmd(),
	)
	return root
}
