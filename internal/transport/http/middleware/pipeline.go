package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/go-shop-nosql/internal/pkg/id"
	"github.com/go-shop-nosql/internal/pkg/logging"
	"go.uber.org/zap"
)

// CorrelationHeader carries the caller's correlation id in and out.
const CorrelationHeader = "X-Correlation-Id"

const defaultMaxBody = 1 << 20

// AuthPolicy says what the pipeline does when a request has no valid bearer token.
type AuthPolicy int

const (
	// AuthOptional lets the request through unauthenticated.
	AuthOptional AuthPolicy = iota
	// AuthRequired rejects the request with 401.
	AuthRequired
)

func (p AuthPolicy) String() string {
	if p == AuthRequired {
		return "required"
	}
	return "optional"
}

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.Identity, error)
}

type requestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// RequestContext is what the pipeline resolved for one request. It is handed
// to the handler explicitly rather than read back out of the request.
type RequestContext struct {
	CorrelationID string
	RequestID     string
	// Identity is nil for unauthenticated requests on AuthOptional routes.
	Identity *domain.Identity
	Logger   *zap.Logger
	// Body is the parsed JSON body, or nil if the request had none or it was not JSON.
	Body json.RawMessage
}

// UserID returns the caller's id, or "" when unauthenticated.
func (rc *RequestContext) UserID() string {
	if rc.Identity == nil {
		return ""
	}
	return rc.Identity.UserID
}

// Decode unmarshals the body into v. A missing or non-JSON body is a validation error.
func (rc *RequestContext) Decode(v interface{}) error {
	if len(rc.Body) == 0 {
		return domain.NewValidationError("request body must be a JSON object")
	}
	if err := json.Unmarshal(rc.Body, v); err != nil {
		return domain.NewValidationError("invalid request body: " + jsonProblem(err))
	}
	return nil
}

// Handler is an endpoint behind the pipeline. Expected failures are written by the
// handler itself; a returned error is a fault.
type Handler func(w http.ResponseWriter, r *http.Request, rc *RequestContext) error

// Endpoint is a Handler after the pipeline has been applied. A non-nil error is a
// fault that the outer transport must turn into a 500.
type Endpoint func(w http.ResponseWriter, r *http.Request) error

type Pipeline struct {
	verifier TokenVerifier
	log      *zap.Logger
	metrics  requestObserver
	maxBody  int64
}

func NewPipeline(verifier TokenVerifier, log *zap.Logger, metrics requestObserver) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{verifier: verifier, log: log, metrics: metrics, maxBody: defaultMaxBody}
}

// Handle composes Wrap and Serve.
func (p *Pipeline) Handle(h Handler, policy AuthPolicy) http.Handler {
	return Serve(p.Wrap(h, policy))
}

// Wrap applies, in order: correlation id, body parsing, bearer verification under
// policy, request-scoped logging, the handler, and status-band logging.
func (p *Pipeline) Wrap(h Handler, policy AuthPolicy) Endpoint {
	return func(w http.ResponseWriter, r *http.Request) (err error) {
		start := time.Now()
		ww, ok := w.(chimiddleware.WrapResponseWriter)
		if !ok {
			ww = chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		rc := &RequestContext{RequestID: requestID(r)}
		rc.CorrelationID = strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if rc.CorrelationID == "" {
			rc.CorrelationID = rc.RequestID
		}
		ww.Header().Set(CorrelationHeader, rc.CorrelationID)

		rc.Body = p.readBody(r)

		route := routePattern(r)
		log := p.log.With(
			zap.String("correlationId", rc.CorrelationID),
			zap.String("requestId", rc.RequestID),
			zap.String("method", r.Method),
			zap.String("route", route),
		)

		if token, present := bearerToken(r); present {
			identity, verr := p.verifier.VerifyToken(token)
			if verr == nil {
				rc.Identity = identity
			} else if policy == AuthRequired {
				log.Debug("token_rejected", zap.Error(verr))
			}
		}
		if rc.Identity == nil && policy == AuthRequired {
			writeJSONError(ww, http.StatusUnauthorized, "unauthorized")
			p.finish(log, r.Method, route, ww.Status(), start)
			return nil
		}
		if rc.Identity != nil {
			log = log.With(zap.String("userId", rc.Identity.UserID))
		}
		rc.Logger = log
		r = r.WithContext(logging.WithContext(r.Context(), log))

		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
				log.Error("request_exception", zap.Error(err), zap.Stack("stack"),
					zap.Duration("duration", time.Since(start)))
				p.observe(r.Method, route, http.StatusInternalServerError, start)
			}
		}()

		if err = h(ww, r, rc); err != nil {
			log.Error("request_exception", zap.Error(err), zap.Duration("duration", time.Since(start)))
			p.observe(r.Method, route, http.StatusInternalServerError, start)
			return err
		}
		p.finish(log, r.Method, route, ww.Status(), start)
		return nil
	}
}

// finish logs by status band: >=500 error, 4xx warning, otherwise info.
func (p *Pipeline) finish(log *zap.Logger, method, route string, status int, start time.Time) {
	if status == 0 {
		status = http.StatusOK
	}
	elapsed := time.Since(start)
	fields := []zap.Field{zap.Int("status", status), zap.Duration("duration", elapsed)}
	switch {
	case status >= 500:
		log.Error("request_error", fields...)
	case status >= 400:
		log.Warn("request_warning", fields...)
	default:
		log.Info("request_ok", fields...)
	}
	p.observe(method, route, status, start)
}

func (p *Pipeline) observe(method, route string, status int, start time.Time) {
	if p.metrics != nil {
		p.metrics.ObserveRequest(method, route, status, time.Since(start))
	}
}

// readBody keeps the body only if it is valid JSON. The request body is replaced
// so handlers can still read it.
func (p *Pipeline) readBody(r *http.Request) json.RawMessage {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, p.maxBody))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(raw)
}

// Serve is the outer transport: a fault from e becomes a generic 500 that never
// carries internal detail.
func Serve(e Endpoint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if err := e(ww, r); err != nil && ww.Status() == 0 {
			writeJSONError(ww, http.StatusInternalServerError, "internal server error")
		}
	})
}

// requestID prefers the Lambda invocation id, then chi's request id, then a fresh UUID.
func requestID(r *http.Request) string {
	if lc, ok := lambdacontext.FromContext(r.Context()); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	if rid := chimiddleware.GetReqID(r.Context()); rid != "" {
		return rid
	}
	return id.NewRequestID()
}

func bearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(h[7:])
	return token, token != ""
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func jsonProblem(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("field '%s' must be %s", typeErr.Field, typeErr.Type)
	}
	return "malformed JSON"
}
