// Package api exposes one oracle over HTTP. Every request shares the
// oracle's budget; positional lookups and metadata endpoints are free.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/sme/dataset"
	"github.com/spektr-org/sme/oracle"
)

// Error codes carried in every error body.
const (
	CodeEmptyQuery      = "EMPTY_QUERY"
	CodeNoMatch         = "NO_MATCH"
	CodeBudgetExhausted = "BUDGET_EXHAUSTED"
	CodeIndexOutOfRange = "INDEX_OUT_OF_RANGE"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInternal        = "INTERNAL"
)

// Server routes HTTP requests to an oracle.
type Server struct {
	oracle *oracle.Oracle
	log    *slog.Logger
	router *gin.Engine
}

// AskResponse is the body of a successful POST /ask.
type AskResponse struct {
	oracle.Answer
	Remaining int64 `json:"remaining"`
}

// RowResponse is the body of a successful GET /rows/:index.
type RowResponse struct {
	Index   int           `json:"index"`
	Outcome dataset.Value `json:"outcome"`
}

// StatusResponse reports the budget and shape of the served dataset.
type StatusResponse struct {
	ID            string `json:"id"`
	Calls         int64  `json:"calls"`
	Budget        int64  `json:"budget"`
	Remaining     int64  `json:"remaining"`
	Rows          int    `json:"rows"`
	OutcomeColumn string `json:"outcome_column"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NewServer builds the router. A nil logger falls back to slog.Default.
func NewServer(o *oracle.Oracle, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{oracle: o, log: logger.With("component", "api")}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.POST("/ask", s.handleAsk)
	s.router.GET("/rows/:index", s.handleRow)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/schema", s.handleSchema)
}

// handleAsk answers one constraint object. Malformed bodies are rejected
// before the budget is touched.
func (s *Server) handleAsk(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, fmt.Errorf("%w: failed to read body: %v", oracle.ErrInvalidConstraint, err))
		return
	}
	constraints, err := oracle.ParseJSON(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	answer, err := s.oracle.AskDetailed(constraints)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, AskResponse{Answer: answer, Remaining: s.oracle.Remaining()})
}

func (s *Server) handleRow(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "index must be an integer", Code: CodeInvalidInput})
		return
	}
	v, err := s.oracle.AskByPosition(index)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, RowResponse{Index: index, Outcome: v})
}

func (s *Server) handleStatus(c *gin.Context) {
	store := s.oracle.Store()
	c.JSON(http.StatusOK, StatusResponse{
		ID:            s.oracle.ID().String(),
		Calls:         s.oracle.Calls(),
		Budget:        s.oracle.Budget(),
		Remaining:     s.oracle.Remaining(),
		Rows:          store.RowCount(),
		OutcomeColumn: store.OutcomeColumn(),
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	c.JSON(http.StatusOK, s.oracle.Store().Schema())
}

// fail writes err with the status and code it maps to.
func (s *Server) fail(c *gin.Context, err error) {
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

// Classify maps an oracle or dataset error to an HTTP status and code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, oracle.ErrBudgetExhausted):
		return http.StatusTooManyRequests, CodeBudgetExhausted
	case errors.Is(err, oracle.ErrEmptyQuery):
		return http.StatusBadRequest, CodeEmptyQuery
	case errors.Is(err, oracle.ErrNoMatch):
		return http.StatusNotFound, CodeNoMatch
	case errors.Is(err, dataset.ErrIndexOutOfRange):
		return http.StatusNotFound, CodeIndexOutOfRange
	case errors.Is(err, oracle.ErrInvalidConstraint):
		return http.StatusBadRequest, CodeInvalidInput
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
