package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dstrelow/gallerygate/internal/events"
	"github.com/dstrelow/gallerygate/internal/models"
	pkghttp "github.com/dstrelow/gallerygate/pkg/http"
)

// SessionTokenHeader carries the opaque bearer session code on every request.
const SessionTokenHeader = "X-Session-Token"

// Gate intercepts every inbound request before application logic runs. It
// extracts the session token header, validates it, and either attaches a
// principal to the request context or rejects with a typed failure. Each
// rejection emits exactly one audit log entry into the request's event buffer.
type Gate struct {
	validator  *SessionValidator
	events     *events.Aggregator
	logger     *slog.Logger
	ipConfig   *pkghttp.IPConfig
	production bool
}

// NewGate creates an authentication gate.
func NewGate(validator *SessionValidator, aggregator *events.Aggregator, logger *slog.Logger, ipConfig *pkghttp.IPConfig, production bool) *Gate {
	return &Gate{
		validator:  validator,
		events:     aggregator,
		logger:     logger,
		ipConfig:   ipConfig,
		production: production,
	}
}

// Middleware returns the gate as a middleware. The gate itself never panics
// past this function and never mutates session or account state; its only
// side effect is the audit log entry on rejection. Panics in downstream
// handlers are not the gate's to handle and pass through to the outer
// recoverer untouched.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, failure, severity := g.authenticate(r)
			if failure != nil {
				g.reject(w, r, failure, severity)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// authenticate resolves the request's principal or a typed rejection. The
// recovery scope ends here: a panic during validation becomes a generic
// failure, while the downstream handler runs outside it.
func (g *Gate) authenticate(r *http.Request) (principal *Principal, failure *Failure, severity string) {
	defer func() {
		if p := recover(); p != nil {
			principal = nil
			failure = newFailure(ReasonValidationFailed, fmt.Sprintf("unexpected error: %v", p))
			severity = models.SeverityError
		}
	}()

	token := r.Header.Get(SessionTokenHeader)
	if token == "" {
		return nil, newFailure(ReasonMissingHeader, "session token header missing"), models.SeveritySuspicious
	}

	source := pkghttp.ExtractClientIP(r, g.ipConfig)
	session, err := g.validator.Validate(r.Context(), token, source)
	if err != nil {
		failure, severity := classify(err)
		return nil, failure, severity
	}

	return &Principal{
		Account: session.Account,
		Session: session,
		Client:  session.Client,
		Token:   token,
	}, nil, ""
}

// classify maps a validation error to its failure and log severity. Errors
// that are not typed failures (for example a store outage) are converted to a
// generic rejection rather than propagated.
func classify(err error) (*Failure, string) {
	var failure *Failure
	if errors.As(err, &failure) {
		if failure.Reason == ReasonInternalInconsistency {
			return failure, models.SeverityError
		}
		return failure, models.SeveritySuspicious
	}
	return newFailure(ReasonValidationFailed, fmt.Sprintf("validation error: %v", err)), models.SeverityError
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, failure *Failure, severity string) {
	address := pkghttp.ExtractClientIP(r, g.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	entry := models.LogEntry{
		Severity: severity,
		Source:   models.SourceExternal,
		Method:   r.Method,
		Action:   failure.Error(),
		Address:  &address,
	}
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	g.events.Add(r.Context(), entry)

	g.logger.Warn("request rejected by authentication gate",
		slog.Int("reason", int(failure.Reason)),
		slog.String("path", r.URL.Path),
		slog.String("address", address))

	pkghttp.WriteError(w, http.StatusUnauthorized, "unauthorized", failure.Message(g.production))
}
