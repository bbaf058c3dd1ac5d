package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var errMapped = errors.New("mapped")

func serve(t *testing.T, responder *ChainedResponder, handler func(c *gin.Context), ctxSpan trace.SpanContext) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/v1/thing", handler)
	req := httptest.NewRequest(http.MethodGet, "/v1/thing", nil)
	if ctxSpan.IsValid() {
		req = req.WithContext(trace.ContextWithSpanContext(req.Context(), ctxSpan))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestChainedResponder_UsesMappersInOrder(t *testing.T) {
	responder := NewChainedResponder("", WithMappers(
		func(err error) (ProblemDetail, bool) {
			if errors.Is(err, errMapped) {
				return ErrBadGateway.WithDetail("first"), true
			}
			return ProblemDetail{}, false
		},
		func(error) (ProblemDetail, bool) { return ErrNotFound, true },
	))

	rec := serve(t, responder, func(c *gin.Context) {
		responder.RespondError(c, fmt.Errorf("wrapped: %w", errMapped))
	}, trace.SpanContext{})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	problem := decode(t, rec)
	require.Equal(t, "first", problem.Detail)
	require.Equal(t, "/v1/thing", problem.Instance)
}

func TestChainedResponder_HidesUnmappedErrors(t *testing.T) {
	var logs bytes.Buffer
	responder := NewChainedResponder("", WithResponderLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	rec := serve(t, responder, func(c *gin.Context) {
		responder.RespondError(c, errors.New("password=hunter2"))
	}, trace.SpanContext{})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decode(t, rec)
	require.NotContains(t, problem.Detail, "hunter2")
	require.Contains(t, logs.String(), "hunter2")
}

func TestChainedResponder_PassesThroughProblemErrors(t *testing.T) {
	responder := NewChainedResponder("https://errors.example.com")

	rec := serve(t, responder, func(c *gin.Context) {
		responder.RespondError(c, ErrUnauthorized.WithDetail("who are you"))
	}, trace.SpanContext{})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "https://errors.example.com"+TypeUnauthorized, decode(t, rec).Type)
}

func TestChainedResponder_AttachesTraceAndRetryAfter(t *testing.T) {
	responder := NewChainedResponder("")
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: trace.TraceID{0x0a}, SpanID: trace.SpanID{0x0b}})

	rec := serve(t, responder, func(c *gin.Context) {
		responder.Respond(c, ErrServiceUnavailable.WithRetryAfter(7))
	}, spanCtx)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "7", rec.Header().Get("Retry-After"))
	problem := decode(t, rec)
	require.Equal(t, spanCtx.TraceID().String(), problem.Extensions["traceId"])
	require.NotContains(t, rec.Body.String(), "RetryAfter")
}

func TestValidationFailed(t *testing.T) {
	responder := NewChainedResponder("")
	rec := serve(t, responder, func(c *gin.Context) {
		responder.ValidationFailed(c, map[string]string{"pageSize": "must be at least 1"})
	}, trace.SpanContext{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode(t, rec)
	require.Equal(t, TypeValidation, problem.Type)
	require.Equal(t, map[string]any{"pageSize": "must be at least 1"}, problem.Extensions["fields"])
}

func TestWithExtension_DoesNotMutateTemplate(t *testing.T) {
	first := ErrNotFound.WithExtension("a", 1)
	second := first.WithExtension("b", 2)

	require.Nil(t, ErrNotFound.Extensions)
	require.Len(t, first.Extensions, 1)
	require.Len(t, second.Extensions, 2)
}
