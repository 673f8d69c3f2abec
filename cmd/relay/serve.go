package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wilhg/relay/pkg/agent"
	"github.com/wilhg/relay/pkg/errmodel"
	"github.com/wilhg/relay/pkg/otel"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer messages over HTTP",
	Long: `Starts an HTTP server exposing POST /api/ask, GET /healthz and GET /metrics.
Runs are handled one at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdown, err := otel.Init(ctx, telemetryConfig(cmd, cfg))
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()

		configPath, _ := cmd.Flags().GetString("config")
		ctrl, err := buildController(ctx, cfg, configPath, logger)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           otelhttp.NewHandler(newRouter(ctrl, logger, newLimiter(cfg.Server.RateLimit, cfg.Server.Burst)), "relay"),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("http server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger.Info("shutting down http server")
			return srv.Shutdown(sctx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (overrides config and RELAY_ADDR)")
}

// runner is the part of *agent.Controller the HTTP surface needs.
type runner interface {
	Run(ctx context.Context, message string) agent.Result
}

type askRequest struct {
	Message string `json:"message"`
}

type askResponse struct {
	Answer        string `json:"answer"`
	Steps         int    `json:"steps"`
	DepthExceeded bool   `json:"depth_exceeded"`
	RunID         string `json:"run_id"`
}

// newLimiter returns nil, meaning unlimited, when perSecond is zero.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func newRouter(r runner, logger *slog.Logger, limiter *rate.Limiter) http.Handler {
	// One run at a time: the loop holds no shared state, but the tool service
	// and the local model are single-tenant.
	var mu sync.Mutex

	mux := chi.NewRouter()
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Post("/api/ask", func(w http.ResponseWriter, req *http.Request) {
		if limiter != nil && !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			errmodel.WriteHTTP(w, req, errmodel.Policy("rate_limited", "too many requests", nil))
			return
		}
		var in askRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&in); err != nil {
			errmodel.WriteHTTP(w, req, errmodel.Validation("invalid_json", "request body must be a JSON object", map[string]any{"detail": err.Error()}))
			return
		}
		if strings.TrimSpace(in.Message) == "" {
			errmodel.WriteHTTP(w, req, errmodel.Validation("missing_message", "message is required", nil))
			return
		}

		mu.Lock()
		res := r.Run(req.Context(), in.Message)
		mu.Unlock()
		logger.Info("answered", "run_id", res.RunID, "steps", res.Steps, "depth_exceeded", res.DepthExceeded)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(askResponse{
			Answer:        res.Text,
			Steps:         res.Steps,
			DepthExceeded: res.DepthExceeded,
			RunID:         res.RunID,
		})
	})
	return mux
}
