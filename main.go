// FleetDeck — server inventory dashboard backend.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/fleetdeck/fleetdeck/internal/agent"
	"github.com/fleetdeck/fleetdeck/internal/config"
	"github.com/fleetdeck/fleetdeck/internal/geo"
	"github.com/fleetdeck/fleetdeck/internal/logging"
	"github.com/fleetdeck/fleetdeck/internal/seed"
	"github.com/fleetdeck/fleetdeck/internal/server"
)

const asciiLogo = `
 ███████╗██╗     ███████╗███████╗████████╗██████╗ ███████╗ ██████╗██╗  ██╗
 ██╔════╝██║     ██╔════╝██╔════╝╚══██╔══╝██╔══██╗██╔════╝██╔════╝██║ ██╔╝
 █████╗  ██║     █████╗  █████╗     ██║   ██║  ██║█████╗  ██║     █████╔╝
 ██╔══╝  ██║     ██╔══╝  ██╔══╝     ██║   ██║  ██║██╔══╝  ██║     ██╔═██╗
 ██║     ███████╗███████╗███████╗   ██║   ██████╔╝███████╗╚██████╗██║  ██╗
 ╚═╝     ╚══════╝╚══════╝╚══════╝   ╚═╝   ╚═════╝ ╚══════╝ ╚═════╝╚═╝  ╚═╝
`

const version = "v0.1.0"

func printBanner(mode string) {
	fmt.Print(asciiLogo)
	fmt.Printf("  ► FleetDeck %s  |  Mode: %s\n\n", version, mode)
}

func main() {
	root := &cobra.Command{
		Use:   "fleetdeck",
		Short: "FleetDeck — server inventory dashboard backend",
		Long: `FleetDeck is a single-binary service for managing an inventory of servers:
paginated listing, CRUD with an activity log, aggregate statistics with
time-window filtering, and map grouping of server locations.`,
		SilenceUsage: true,
	}

	// ── server subcommand ─────────────────────────────────────────────────────
	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the FleetDeck server (dual-port: 8686 control + 8787 data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("SERVER")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logging.New(cfg.LogLevel, cfg.LogPretty)

			if err := server.InitDB(cfg, logging.Component(log, "db")); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}

			// Inject security and view settings into server package globals.
			server.SetJWTSecret(cfg.JWTSecret)
			server.SetProbeToken(cfg.ProbeToken)
			if err := server.SetAdminCredentials(cfg.AdminUser, cfg.AdminPass); err != nil {
				return fmt.Errorf("hashing admin password: %w", err)
			}
			server.SetDefaultPageSize(cfg.DefaultPageSize)
			server.SetMapFitOptions(geo.FitOptions{
				Padding: cfg.MapPadding,
				MinZoom: cfg.MapMinZoom,
				MaxZoom: cfg.MapMaxZoom,
			})

			if cfg.RedisAddr != "" {
				if err := server.InitStatsCache(cfg); err != nil {
					return fmt.Errorf("initializing stats cache: %w", err)
				}
			}

			gin.SetMode(gin.ReleaseMode)
			corsMiddleware := func(c *gin.Context) {
				c.Header("Access-Control-Allow-Origin", "*")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				if c.Request.Method == "OPTIONS" {
					c.AbortWithStatus(204)
					return
				}
				c.Next()
			}

			// ── Control-plane engine (8686) ────────────────────────────────────
			ctrlEngine := gin.New()
			ctrlEngine.Use(gin.Recovery(), corsMiddleware, server.MetricsMiddleware())
			server.RegisterControlRoutes(ctrlEngine)
			server.RegisterMetricsRoute(ctrlEngine)

			// ── Data-plane engine (8787) ───────────────────────────────────────
			dataEngine := gin.New()
			dataEngine.Use(gin.Recovery(), server.MetricsMiddleware())
			server.RegisterDataRoutes(dataEngine)

			ctrlAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ControlPort)
			dataAddr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.DataPort)

			log.Info().Str("addr", ctrlAddr).Msg("control plane (admin API) listening")
			log.Info().Str("addr", dataAddr).Msg("data plane (probe reports) listening")

			// Run both servers concurrently; shut down gracefully on SIGINT/SIGTERM.
			ctrlSrv := &http.Server{Addr: ctrlAddr, Handler: ctrlEngine}
			dataSrv := &http.Server{Addr: dataAddr, Handler: dataEngine}

			errCh := make(chan error, 2)
			go func() { errCh <- ctrlSrv.ListenAndServe() }()
			go func() { errCh <- dataSrv.ListenAndServe() }()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt) // os.Interrupt = SIGINT; works on all platforms

			select {
			case err := <-errCh:
				return err
			case <-quit:
				log.Info().Msg("shutting down gracefully")
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ctrlSrv.Shutdown(ctx)
				_ = dataSrv.Shutdown(ctx)
				return nil
			}
		},
	}

	// ── probe subcommand ──────────────────────────────────────────────────────
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Start the FleetDeck probe on this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			printBanner("PROBE")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// CLI flags override config values.
			if join, _ := cmd.Flags().GetString("join"); join != "" {
				if !containsPort(join) {
					join = fmt.Sprintf("%s:%d", join, cfg.DataPort)
				}
				cfg.ProbeJoinAddr = join
			}
			if token, _ := cmd.Flags().GetString("token"); token != "" {
				cfg.ProbeOutboundToken = token
			}
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				cfg.ProbeServerName = name
			}

			log := logging.New(cfg.LogLevel, cfg.LogPretty)
			return agent.Run(cfg, logging.Component(log, "probe"))
		},
	}
	probeCmd.Flags().String("join", "", "Data-plane address, e.g. 192.168.1.1 or 192.168.1.1:8787")
	probeCmd.Flags().String("token", "", "Pre-shared token for server authentication (overrides config)")
	probeCmd.Flags().String("name", "", "Server name to report (defaults to hostname)")

	// ── seed subcommand ───────────────────────────────────────────────────────
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a generated demo inventory into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log := logging.New(cfg.LogLevel, cfg.LogPretty)

			if err := server.InitDB(cfg, logging.Component(log, "db")); err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			count, _ := cmd.Flags().GetInt("count")
			return seed.Run(server.DB, count, logging.Component(log, "seed"))
		},
	}
	seedCmd.Flags().Int("count", 25, "Number of demo servers to generate")

	// ── version subcommand ────────────────────────────────────────────────────
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print FleetDeck version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FleetDeck %s\n", version)
		},
	}

	root.AddCommand(serverCmd, probeCmd, seedCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// containsPort checks whether addr already has a port suffix.
func containsPort(addr string) bool {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return true
		}
		if addr[i] == '/' {
			break
		}
	}
	return false
}
