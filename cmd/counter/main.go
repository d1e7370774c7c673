// Command counter serves named counters over HTTP. Every counter is updated
// by its own actor, values live in an actor-confined key/value store.
//
// Run with: go run ./cmd/counter
// Then use curl to interact:
//
//	curl -X POST localhost:8181/counter/my-counter/increment
//	curl localhost:8181/counter/my-counter
//
// Prometheus metrics are available at http://localhost:2121/metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	promadapter "github.com/codewandler/actq-go/adapters/prometheus"
	"github.com/codewandler/actq-go/core/actor"
	"github.com/codewandler/actq-go/core/exec"
	"github.com/codewandler/actq-go/core/perkey"
	"github.com/codewandler/actq-go/ports/kv"
)

type config struct {
	httpAddr    string
	metricsAddr string
	debug       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config{}

	cmd := &cobra.Command{
		Use:           "counter",
		Short:         "Serve actor-backed counters over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if cfg.debug {
				level = slog.LevelDebug
			}
			log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(log)

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			if err := run(ctx, log, cfg); err != nil {
				log.Error("counter failed", slog.Any("error", err))
				return err
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.httpAddr, "http", getEnv("COUNTER_HTTP", ":8181"), "address of the counter API")
	f.StringVar(&cfg.metricsAddr, "metrics", getEnv("COUNTER_METRICS", ":2121"), "address of the Prometheus endpoint")
	f.BoolVar(&cfg.debug, "debug", getEnvBool("COUNTER_DEBUG", false), "enable debug logging")

	return cmd
}

func run(ctx context.Context, log *slog.Logger, cfg config) error {
	reg := prometheus.NewRegistry()
	actorMetrics := promadapter.NewActorMetrics(reg)

	ex := exec.Goroutines()

	store, err := kv.NewMemStore(ex, actor.Options{ID: "counter-store", Logger: log, Metrics: actorMetrics})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()

	counters := perkey.New[string](ex, perkey.WithLogger(log), perkey.WithMetrics(actorMetrics))
	defer counters.Close()

	promMux := http.NewServeMux()
	promMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	promServer := &http.Server{Addr: cfg.metricsAddr, Handler: promMux}
	go serve(log, "metrics", promServer)
	defer promServer.Shutdown(context.Background())

	httpServer := &http.Server{Addr: cfg.httpAddr, Handler: newServer(log, counters, store)}
	go serve(log, "api", httpServer)
	defer httpServer.Shutdown(context.Background())

	log.Info("counter ready",
		slog.String("increment", fmt.Sprintf("curl -X POST localhost%s/counter/my-counter/increment", cfg.httpAddr)),
		slog.String("get", fmt.Sprintf("curl localhost%s/counter/my-counter", cfg.httpAddr)),
		slog.String("metrics", fmt.Sprintf("http://localhost%s/metrics", cfg.metricsAddr)),
	)

	<-ctx.Done()
	log.Info("shutting down...")
	return nil
}

func serve(log *slog.Logger, name string, srv *http.Server) {
	log.Info("server starting", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", slog.String("server", name), slog.Any("error", err))
	}
}

func getEnv(key, fallback string) string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}
