// Package server assembles the HTTP server around the user routes.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremywhuff/rpq"
	"github.com/jeremywhuff/rpq/internal/users"
	"github.com/jeremywhuff/rpq/rpmetrics"
)

type Options struct {
	Store  rpq.Store
	Logger *slog.Logger

	MaxResponseSize int
	RateLimit       int // requests per minute and client IP, 0 disables
	RateBurst       int
	BcryptCost      int
}

// NewEngine builds the gin engine serving /health, /metrics and the user routes. Metrics are registered on
// a registry owned by the engine.
func NewEngine(o Options) *gin.Engine {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	if o.RateLimit > 0 {
		engine.Use(RateLimitMiddleware(o.RateLimit, o.RateBurst))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, rpq.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	users.Register(engine,
		users.Deps{Store: o.Store, BcryptCost: o.BcryptCost},
		users.Options{
			Logger:          rpmetrics.New(reg, rpq.SlogLogger{L: log.With("component", "pipeline")}),
			MaxResponseSize: o.MaxResponseSize,
		})

	return engine
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"errors", c.Errors.String(),
		)
	}
}

// Run serves handler on addr until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
