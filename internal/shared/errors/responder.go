package errors

import (
	"errors"
	"io"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// ContentTypeProblemJSON is the media type for problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates an application error into a problem. It reports false for errors it
// does not recognize.
type ErrorMapper func(err error) (ProblemDetail, bool)

// ChainedResponder writes problem responses, consulting its mappers before treating an error as
// internal.
type ChainedResponder struct {
	baseURI string
	mappers []ErrorMapper
	logger  *slog.Logger
}

// ResponderOption configures a ChainedResponder.
type ResponderOption func(*ChainedResponder)

// WithResponderLogger logs unmapped errors before they are hidden behind a 500.
func WithResponderLogger(logger *slog.Logger) ResponderOption {
	return func(r *ChainedResponder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMappers appends error mappers, consulted in order.
func WithMappers(mappers ...ErrorMapper) ResponderOption {
	return func(r *ChainedResponder) {
		r.mappers = append(r.mappers, mappers...)
	}
}

// NewChainedResponder creates a responder. A non-empty baseURI prefixes relative problem types.
func NewChainedResponder(baseURI string, opts ...ResponderOption) *ChainedResponder {
	r := &ChainedResponder{
		baseURI: baseURI,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Respond writes problem with the problem+json content type. The request path becomes the
// instance and the active trace id is attached when present.
func (r *ChainedResponder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && len(problem.Type) > 0 && problem.Type[0] == '/' {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
		problem = problem.WithExtension("traceId", spanCtx.TraceID().String())
	}
	if problem.RetryAfterSeconds > 0 {
		c.Header("Retry-After", strconv.Itoa(problem.RetryAfterSeconds))
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError maps err through the chain. Unmapped errors are logged and answered with a generic
// 500 whose detail does not leak the cause.
func (r *ChainedResponder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	if errors.As(err, &problem) {
		r.Respond(c, problem)
		return
	}
	r.logger.LogAttrs(c.Request.Context(), slog.LevelError, "unhandled request error",
		slog.String("path", c.Request.URL.Path),
		slog.String("error", err.Error()),
	)
	r.Respond(c, ErrInternal.WithDetail("an unexpected error occurred"))
}

// ValidationFailed writes a 400 listing the offending parameters.
func (r *ChainedResponder) ValidationFailed(c *gin.Context, fieldErrors map[string]string) {
	r.Respond(c, NewValidationProblem(fieldErrors))
}
