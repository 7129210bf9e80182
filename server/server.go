// server/server.go
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/rahulwagh/policymig/resolver"
	"github.com/rahulwagh/policymig/terraform"
)

// Server is a local HTTP API over the inventory and the policy pipeline.
// Nothing it serves writes to the output directory or the store.
type Server struct {
	addr     string
	store    resolver.InstanceStore
	resolver *resolver.Resolver
	namer    terraform.Namer
	now      func() time.Time
	router   *gin.Engine
}

// New wires the routes. A nil namer draws random resource ids.
func New(addr string, store resolver.InstanceStore, namer terraform.Namer) *Server {
	if namer == nil {
		namer = terraform.NewRandomNamer(nil)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{
		addr:     addr,
		store:    store,
		resolver: resolver.New(store),
		namer:    namer,
		now:      time.Now,
		router:   router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/instances", s.handleInstances)

	policies := s.router.Group("/policies")
	{
		policies.POST("/validate", s.handleValidate)
		policies.POST("/translate", s.handleTranslate)
		policies.POST("/render", s.handleRender)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on http://%s", s.addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("Shutting down server")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("HTTP request")
	}
}
