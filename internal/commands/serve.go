package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Goden-Gun/resilience-lib/pkg/bootstrap"
	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/httpguard"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/metrics"
	"github.com/Goden-Gun/resilience-lib/pkg/notify"
	"github.com/Goden-Gun/resilience-lib/pkg/probe"
	"github.com/Goden-Gun/resilience-lib/pkg/sink"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo site behind error boundaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config-dir")
			prefix, _ := cmd.Flags().GetString("env-prefix")
			cfg, err := config.Load(config.LoadOptions{ConfigPath: dir, EnvPrefix: prefix, AllowNoConfig: true})
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

// app is the wired object graph behind serve.
type app struct {
	router  *gin.Engine
	center  *notify.Center
	site    *site
	closers []func() error
}

func (a *app) close() {
	a.site.close()
	a.center.Close()
	a.closeAll()
}

func runServe(ctx context.Context, cfg *config.Config) error {
	lg, err := bootstrap.InitLogger(cfg.Log, cfg.App.Name)
	if err != nil {
		return err
	}

	shutdown, err := bootstrap.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		lg.Warn("tracing disabled", logger.Fields{"error": err.Error()})
		shutdown = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := buildApp(ctx, cfg, lg, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.close()

	srv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     a.router,
		ReadTimeout: cfg.Server.ReadTimeout.Duration(),
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("server listening", logger.Fields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		lg.Error("server forced to shutdown", logger.Fields{"error": err.Error()})
		return err
	}
	return nil
}

func buildApp(ctx context.Context, cfg *config.Config, lg logger.Logger, reg *prometheus.Registry) (*app, error) {
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg, cfg.Metrics.Namespace)

	a := &app{}
	var (
		sinks       []notify.Sink
		contentPing probe.Probe
	)

	if cfg.Redis.Enabled {
		client, err := bootstrap.InitRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		rs := sink.NewRedis(client, cfg.Notify.RedisChannel)
		rs.SetObserver(collector)
		sinks = append(sinks, rs)
		contentPing = probe.Redis(client)
	}
	if cfg.Kafka.Enabled {
		ks, err := bootstrap.InitKafka(cfg.Kafka, cfg.Notify.KafkaTopic)
		if err != nil {
			a.closeAll()
			return nil, err
		}
		a.closers = append(a.closers, ks.Close)
		ks.SetObserver(collector)
		sinks = append(sinks, ks)
	}

	a.center = notify.NewCenter(notify.Options{
		Logger:          lg,
		Sinks:           sinks,
		SinkTimeout:     cfg.Notify.SinkTimeout.Duration(),
		DefaultAutoHide: cfg.Notify.AutoHide.Duration(),
		Observer:        collector,
	})
	a.site = newSite(siteDeps{
		Config:   cfg,
		Logger:   lg,
		Center:   a.center,
		Observer: collector,
		Probe:    contentPing,
		Clock:    clockwork.NewRealClock(),
	})

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(httpguard.RequestID(), httpguard.Logging(lg), httpguard.Recovery(httpguard.Options{
		Center:      a.center,
		Logger:      lg,
		Observer:    collector,
		Development: cfg.Boundary.Development,
	}))
	a.site.register(r)
	httpguard.RegisterNotifications(r, a.center)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	a.router = r
	return a, nil
}

func (a *app) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
