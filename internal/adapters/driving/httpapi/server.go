// Package httpapi serves the pipeline over HTTP.
//
// The surface mirrors what web frontends expect from a question-answering
// backend: a /query endpoint for grounded answers, /status and /health for
// monitoring, and /reinitialize to trigger a rebuild. All responses are
// JSON and CORS is open so a browser app on another origin can call it.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/askdoc-labs/askdoc-cli/internal/core/domain"
	"github.com/askdoc-labs/askdoc-cli/internal/core/ports/driving"
	"github.com/askdoc-labs/askdoc-cli/internal/logger"
)

// Server wraps a gin engine around the pipeline.
type Server struct {
	pipeline driving.Pipeline
	engine   *gin.Engine
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(pipeline driving.Pipeline) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors())

	s := &Server{
		pipeline: pipeline,
		engine:   engine,
	}

	engine.GET("/", s.handleRoot)
	engine.GET("/health", s.handleHealth)
	engine.GET("/status", s.handleStatus)
	engine.POST("/query", s.handleQuery)
	engine.POST("/reinitialize", s.handleReinitialize)

	return s
}

// Handler returns the underlying HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// cors allows any origin. The API carries no credentials.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "askdoc",
		"endpoints": gin.H{
			"GET /health":        "liveness probe",
			"GET /status":        "pipeline state and index counters",
			"POST /query":        "answer a question from the indexed documents",
			"POST /reinitialize": "rebuild the index from the corpus",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusResponse is the /status payload.
type statusResponse struct {
	State          string    `json:"state"`
	Ready          bool      `json:"ready"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	EmbeddingModel string    `json:"embedding_model,omitempty"`
	BuiltAt        time.Time `json:"built_at,omitzero"`
	LastError      string    `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(c *gin.Context) {
	status := s.pipeline.Status()
	c.JSON(http.StatusOK, statusResponse{
		State:          status.State.String(),
		Ready:          status.Ready,
		Documents:      status.Documents,
		Chunks:         status.Chunks,
		EmbeddingModel: status.EmbeddingModel,
		BuiltAt:        status.BuiltAt,
		LastError:      status.LastError,
	})
}

// queryRequest is the /query request body.
type queryRequest struct {
	Question string `json:"question" binding:"required"`
}

// querySource is one context chunk in the /query response.
type querySource struct {
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// queryResponse is the /query payload.
type queryResponse struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Model    string        `json:"model"`
	Sources  []querySource `json:"sources"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	answer, err := s.pipeline.Answer(c.Request.Context(), req.Question)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := queryResponse{
		Question: answer.Question,
		Answer:   answer.Text,
		Model:    answer.Model,
		Sources:  make([]querySource, len(answer.Context)),
	}
	for i, rc := range answer.Context {
		resp.Sources[i] = querySource{
			Source: rc.Chunk.SourceLabel(),
			Score:  rc.Score,
			Text:   rc.Chunk.Text,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReinitialize(c *gin.Context) {
	if err := s.pipeline.Build(c.Request.Context()); err != nil {
		s.writeError(c, err)
		return
	}

	status := s.pipeline.Status()
	logger.Info("Reinitialized index: %d documents, %d chunks", status.Documents, status.Chunks)
	c.JSON(http.StatusOK, gin.H{
		"state":     status.State.String(),
		"documents": status.Documents,
		"chunks":    status.Chunks,
	})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBuildInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
