package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-concord/infrastructure/httpapi"
	"github.com/ahrav/go-concord/infrastructure/middleware"
	"github.com/ahrav/go-concord/internal/application"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the consolidation API over HTTP",
		Long: `Serve the consolidation API over HTTP.

Endpoints:
  POST /v1/consolidations  Consolidate a JSON submission
  POST /v1/validations     Check a JSON submission
  GET  /healthz            Liveness probe
  GET  /metrics            Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := middleware.NewPrometheusMetrics(reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.consolidator(ctx, "http",
				[]application.ConsolidatorOption{application.WithMetrics(metrics)},
				middleware.NewMetricsObserver(metrics),
			)
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			srv, err := httpapi.NewServer(httpapi.Config{
				HTTP:         a.cfg.HTTP,
				Consolidator: c,
				Logger:       a.logger,
				Gatherer:     reg,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from settings, :8080)")

	return cmd
}
