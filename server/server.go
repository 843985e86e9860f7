// Package server exposes the question-answer exchange over HTTP.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"irisai/core"
	"irisai/rag"
	"irisai/storage"
)

// Server routes ask/health/stats requests to the engine and store.
type Server struct {
	engine *rag.Engine
	store  storage.VectorStore
}

func New(engine *rag.Engine, store storage.VectorStore) *Server {
	return &Server{engine: engine, store: store}
}

// Router builds the gin handler tree.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors())

	r.POST("/ask", s.handleAsk)
	r.GET("/health", s.handleHealth)
	r.GET("/stats", s.handleStats)
	return r
}

// Run blocks serving HTTP until the listener fails or ctx is cancelled;
// cancellation drains in-flight requests before returning.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	log.Printf("Server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleAsk(c *gin.Context) {
	var req core.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "question is required"})
		return
	}

	resp, err := s.engine.Ask(c.Request.Context(), req.Question)
	if err != nil {
		if errors.Is(err, rag.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Vector database not available"})
			return
		}
		log.Printf("Error processing question: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	vectorDB := "connected"
	if err := s.store.Ping(ctx); err != nil {
		vectorDB = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "iris-ai",
		"vector_db": vectorDB,
	})
}

func (s *Server) handleStats(c *gin.Context) {
	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, core.StatsResponse{
		TotalFrames:    count,
		CollectionName: s.store.Name(),
	})
}
