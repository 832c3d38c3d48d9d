// Package api exposes the planner over HTTP with gin
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vsinha/mrp-aps/pkg/infrastructure/metrics"
)

// Options configure the router. Nil Metrics or Gatherer leave request metrics and
// /metrics out.
type Options struct {
	Logger   *zap.Logger
	Metrics  HTTPMetrics
	Gatherer prometheus.Gatherer
}

func NewRouter(h *Handler, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID(logger.Named("http")))
	router.Use(AccessLog())
	if opts.Metrics != nil {
		router.Use(Metrics(opts.Metrics))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	v1 := router.Group("/v1")
	addRunRoutes(v1, h)
	addScenarioRoutes(v1, h)
	return router
}

func addRunRoutes(rg *gin.RouterGroup, h *Handler) {
	runs := rg.Group("/runs")
	runs.POST("", h.CreateRun)
	runs.GET("/:id", h.GetRun)
	runs.GET("/:id/suggestions", h.ListSuggestions)
	runs.GET("/:id/exceptions", h.ListExceptions)
	runs.GET("/:id/events", h.ListEvents)
	runs.POST("/:id/cancel", h.CancelRun)
	runs.POST("/:id/what-if", h.CreateWhatIf)

	rg.GET("/capacity", h.AnalyzeCapacity)
}

func addScenarioRoutes(rg *gin.RouterGroup, h *Handler) {
	rg.GET("/scenarios/:id/compare", h.CompareScenario)
}

// Serve runs router on addr until ctx is done, then drains in-flight requests
func Serve(ctx context.Context, addr string, router http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
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

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
