package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf/internal/edgeproxy"
	"github.com/ZaguanLabs/appshelf/internal/logging"
	"github.com/ZaguanLabs/appshelf/internal/metrics"
	"github.com/ZaguanLabs/appshelf/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the edge server (API proxy, translation endpoints, static assets)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			logger, err := logging.InitLogger(logOptions(cfg))
			if err != nil {
				return err
			}
			logger.WithFields(logging.BaseFields("serve", cfg.Path())).Info("starting appshelf")
			cfg.Watch()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			stack, err := server.Build(ctx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer stack.Close()

			var fallback http.Handler
			if cfg.Server.StaticDir != "" {
				fallback = http.FileServer(http.Dir(cfg.Server.StaticDir))
			}

			proxy, err := edgeproxy.New(edgeproxy.Options{
				UpstreamOrigin:  cfg.Proxy.UpstreamOrigin,
				APIPrefix:       cfg.Proxy.APIPrefix,
				Timeout:         cfg.Proxy.Timeout,
				Fallback:        fallback,
				Logger:          logger,
				OnUpstreamError: m.ProxyError,
			})
			if err != nil {
				return err
			}

			var health func(context.Context) error
			if p, ok := stack.Cache.(interface{ Ping(context.Context) error }); ok {
				health = p.Ping
			}

			srv := server.New(server.Options{
				Translator:      stack.Translator,
				Proxy:           proxy,
				Metrics:         m,
				Logger:          logger,
				DefaultLanguage: cfg.DefaultLanguage(),
				HealthCheck:     health,
			})

			return server.Run(ctx, cfg.Server.Listen, srv.Handler(), cfg.Server.ShutdownTimeout, logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "override server.listen")
	return cmd
}
