// Package api exposes the ledger over a JSON HTTP interface.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/spice-ledger/internal/ledger"
)

const (
	sessionKey      = "session"
	shutdownTimeout = 10 * time.Second
)

// Server routes HTTP requests to the ledger stores.
type Server struct {
	ledger *ledger.Ledger
	router *gin.Engine
}

// NewServer builds the router. Call gin.SetMode before this to change the mode.
func NewServer(l *ledger.Ledger) *Server {
	s := &Server{ledger: l}

	router := gin.New()
	// Category names may contain "/", so path values are matched escaped.
	router.UseRawPath = true
	router.UnescapePathValues = true
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/health", s.health)

	api := router.Group("/api")
	api.POST("/login", s.login)

	users := api.Group("/users/:id")
	users.POST("/deactivate", s.deactivateUser)
	users.GET("/summary", s.userSummary)
	users.DELETE("", s.deleteUser)

	scoped := users.Group("", s.requireSession)
	scoped.GET("/categories", s.listCategories)
	scoped.PUT("/categories", s.upsertCategory)
	scoped.DELETE("/categories/:type/:name", s.deleteCategory)
	scoped.GET("/categories/:type/:name/others", s.otherCategories)
	scoped.GET("/categories/:type/:name/count", s.countCategoryTransactions)

	scoped.GET("/transactions", s.listTransactions)
	scoped.POST("/transactions", s.addTransaction)
	scoped.GET("/transactions/summary", s.summarizeTransactions)
	scoped.GET("/transactions/:txid", s.getTransaction)
	scoped.PATCH("/transactions/:txid", s.updateTransaction)
	scoped.DELETE("/transactions/:txid", s.deleteTransaction)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Handled request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// requireSession binds the category and transaction stores to the :id user.
func (s *Server) requireSession(c *gin.Context) {
	session, err := s.ledger.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		c.Abort()
		return
	}
	c.Set(sessionKey, session)
	c.Next()
}

func sessionFrom(c *gin.Context) *ledger.Session {
	return c.MustGet(sessionKey).(*ledger.Session)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
