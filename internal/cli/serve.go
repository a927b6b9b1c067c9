package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"memviz/internal/config"
	"memviz/internal/routes"
	"memviz/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	defaults := config.Default()
	flags := serveCmd.Flags()
	flags.String("listen-address", defaults.ListenAddress, "address the dashboard listens on")
	flags.String("simulation-url", defaults.SimulationURL, "base URL of the simulation service")
	flags.Duration("time-unit", defaults.TimeUnit, "length of one time unit for highlights and notifications")
	flags.Duration("request-timeout", defaults.RequestTimeout, "timeout for simulation service requests")
	flags.String("log-level", defaults.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.Bool("open-browser", defaults.OpenBrowser, "open the dashboard in the default browser")
	flags.Bool("require-viewer-token", defaults.RequireViewerToken, "require a viewer token on /ws")
	flags.String("templates-dir", defaults.TemplatesDir, "load dashboard templates from this directory")

	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	configureLogger(cfg)
	log := logrus.StandardLogger().WithField("type", "cli/serve")

	if logrus.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := services.NewWebSocketHub(cfg.HeartbeatInterval)
	hub.Start()

	dashboard := services.NewDashboard(
		services.NewSimulationClient(cfg.SimulationURL, cfg.RequestTimeout),
		hub,
		services.NewTimerScheduler(),
		services.DashboardOptions{TimeUnit: cfg.TimeUnit},
	)

	router, err := routes.NewRouter(routes.Deps{
		Dashboard:           dashboard,
		Hub:                 hub,
		Auth:                services.NewAuthService(cfg.JWTSecret, cfg.TokenExpiry),
		HostCache:           services.NewHostCache(cfg.HostCacheTTL, services.GetHostMemory),
		AllowedOrigins:      cfg.AllowedOrigins,
		AllowedIPs:          cfg.AllowedIPs,
		RequireViewerToken:  cfg.RequireViewerToken,
		RateLimit:           cfg.RateLimit,
		RateBurst:           cfg.RateBurst,
		SimulationRateLimit: cfg.SimulationRateLimit,
		SimulationRateBurst: cfg.SimulationRateBurst,
		TemplatesDir:        cfg.TemplatesDir,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	atexit.Register(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server did not shut down cleanly")
		}
		hub.Stop()
		log.Info("dashboard stopped")
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	dashboardURL := "http://" + cfg.ListenAddress
	log.WithFields(logrus.Fields{
		"url":        dashboardURL,
		"simulation": cfg.SimulationURL,
		"time_unit":  cfg.TimeUnit,
	}).Info("dashboard listening")

	if cfg.OpenBrowser {
		if err := browser.OpenURL(dashboardURL); err != nil {
			log.WithError(err).Warn("could not open browser")
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info("shutting down")
		return nil
	case err, ok := <-errCh:
		if ok && err != nil {
			return errors.Wrapf(err, "failed to listen on %s", cfg.ListenAddress)
		}
		return nil
	}
}
