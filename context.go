package loginmanager

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/metrics"
	"github.com/jamesread/loginmanager/sessions"
	log "github.com/sirupsen/logrus"
)

// Decoder recovers the login key from a request and writes the final login
// intent back onto the response headers. sessions.CookieSession is the
// standard implementation.
type Decoder interface {
	// Decode returns the key found in the request, if any. A non-nil error
	// stops the request before the handler runs; use *HTTPError to choose the
	// status. Decode should not return an error just because the client is
	// not logged in.
	Decode(r *http.Request, state *authpublic.LoginState) (key string, ok bool, err error)

	// Update adds headers for the state's final intent. It runs once, just
	// before the response headers are written.
	Update(h http.Header, r *http.Request, state *authpublic.LoginState) error
}

// LoginManager is the login middleware. It is immutable after construction
// and shared by every request.
type LoginManager struct {
	decoder        Decoder
	loginView      string
	nextParam      string
	redirect       bool
	redirectStatus int
	metrics        *metrics.Recorder
}

// Option configures a LoginManager.
type Option func(*LoginManager)

// WithLoginView sets the URL unauthenticated requests are redirected to. Default: "/login"
func WithLoginView(path string) Option {
	return func(m *LoginManager) {
		if path != "" {
			m.loginView = path
		}
	}
}

// WithNextParam sets the query parameter that carries the original request URI. Default: "next"
func WithNextParam(name string) Option {
	return func(m *LoginManager) {
		if name != "" {
			m.nextParam = name
		}
	}
}

// WithRedirect turns the 401 redirect on or off. Default: true
func WithRedirect(redirect bool) Option {
	return func(m *LoginManager) {
		m.redirect = redirect
	}
}

// WithRedirectStatus sets the redirect status, 302 or 303. Other values are
// ignored. Default: 302
func WithRedirectStatus(status int) Option {
	return func(m *LoginManager) {
		if status == http.StatusFound || status == http.StatusSeeOther {
			m.redirectStatus = status
		}
	}
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(m *LoginManager) {
		m.metrics = r
	}
}

func newManager(opts ...Option) *LoginManager {
	m := &LoginManager{
		loginView:      "/login",
		nextParam:      "next",
		redirect:       true,
		redirectStatus: http.StatusFound,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// New creates a LoginManager around decoder.
func New(decoder Decoder, opts ...Option) *LoginManager {
	m := newManager(opts...)
	m.decoder = decoder
	return m
}

// NewFromConfig validates cfg and creates a LoginManager backed by a
// sessions.CookieSession. opts are applied after the values from cfg.
func NewFromConfig(cfg *authpublic.Config, opts ...Option) (*LoginManager, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	base := []Option{
		WithLoginView(cfg.Redirect.GetLoginView()),
		WithNextParam(cfg.Redirect.GetNextParam()),
		WithRedirect(cfg.Redirect.GetEnabled()),
		WithRedirectStatus(cfg.Redirect.GetStatus()),
	}

	m := newManager(append(base, opts...)...)

	codec, err := sessions.NewCookieSessionFromConfig(cfg, sessions.WithMetrics(m.metrics))
	if err != nil {
		return nil, err
	}
	m.decoder = codec

	return m, nil
}

// Middleware wraps next. For each request it decodes the login key, runs
// next, writes the resulting session cookie and, if next answered 401,
// replaces the response with a redirect to the login view.
//
// Handlers must call Login or Logout before they first write to the
// response; headers cannot change once they are sent.
//
// The ResponseWriter passed to next does not implement http.Hijacker or
// io.ReaderFrom directly. Use http.NewResponseController to reach them.
func (m *LoginManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authpublic.LoginStateFromRequest(r) != nil {
			// An outer LoginManager owns this request.
			next.ServeHTTP(w, r)
			return
		}

		state := authpublic.NewLoginState()
		r = r.WithContext(authpublic.WithLoginState(r.Context(), state))

		key, ok, err := m.decoder.Decode(r, state)
		if err != nil {
			m.writeDecodeError(w, r, err)
			return
		}
		state.SetRecoveredIdentifier(key, ok)

		iw := &interceptWriter{
			ResponseWriter: w,
			commit: func(status int) bool {
				return m.commit(w, r, state, status)
			},
		}

		next.ServeHTTP(iw, r)
		iw.finish()
	})
}

// commit writes the response headers for status. It returns true when it
// replaced the handler's response, in which case the handler's body is dropped.
func (m *LoginManager) commit(w http.ResponseWriter, r *http.Request, state *authpublic.LoginState, status int) bool {
	err := m.decoder.Update(w.Header(), r, state)
	state.MarkCommitted()

	if err != nil {
		log.WithFields(log.Fields{
			"path":  getRequestPath(r),
			"error": err,
		}).Error("Failed to encode session cookie")

		w.Header().Del("Set-Cookie")
		http.Error(w, publicMessage(err), http.StatusInternalServerError)
		return true
	}

	if m.redirect && status == http.StatusUnauthorized {
		m.writeRedirect(w, r)
		return true
	}

	w.WriteHeader(status)
	return false
}

func (m *LoginManager) writeRedirect(w http.ResponseWriter, r *http.Request) {
	target := m.redirectTarget(r)

	h := w.Header()
	h.Del("Content-Length")
	h.Del("Content-Encoding")
	h.Set("Location", target)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(m.redirectStatus)

	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, target)
	}

	m.metrics.Redirected()

	log.WithFields(log.Fields{
		"path":   getRequestPath(r),
		"target": m.loginView,
	}).Debug("Redirecting unauthenticated request to login view")
}

// redirectTarget builds loginView?next=<escaped request URI>.
func (m *LoginManager) redirectTarget(r *http.Request) string {
	original := "/"
	if r.URL != nil {
		original = r.URL.RequestURI()
	}

	sep := "?"
	if strings.Contains(m.loginView, "?") {
		sep = "&"
	}

	return m.loginView + sep + url.QueryEscape(m.nextParam) + "=" + url.QueryEscape(original)
}

func (m *LoginManager) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadRequest
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Status
	}

	log.WithFields(log.Fields{
		"path":   getRequestPath(r),
		"status": status,
	}).Debug("Request rejected while decoding login state")

	msg := publicMessage(err)
	if httpErr == nil {
		msg = "Bad request."
	}
	http.Error(w, msg, status)
}

// State returns the LoginState of a request handled by the middleware.
func State(r *http.Request) (*authpublic.LoginState, error) {
	state := authpublic.LoginStateFromRequest(r)
	if state == nil {
		return nil, ErrMissingMiddleware
	}
	return state, nil
}

// getRequestPath extracts the path from a request for logging purposes
func getRequestPath(req *http.Request) string {
	if req != nil && req.URL != nil {
		return req.URL.Path
	}
	return ""
}

// validateSecret checks the key material without building the codec
func validateSecret(cfg *authpublic.Config) error {
	secret, err := cfg.GetSecret()
	if err != nil {
		return fmt.Errorf("secret configuration error: %w", err)
	}
	if len(secret) < sessions.MinSecretLength {
		return fmt.Errorf("secret configuration error: %w", sessions.ErrSecretTooShort)
	}
	for i, prev := range cfg.GetPreviousSecrets() {
		if len(prev) < sessions.MinSecretLength {
			return fmt.Errorf("secret configuration error: previousSecretKeys[%d]: %w", i, sessions.ErrSecretTooShort)
		}
	}
	return nil
}

// validateCookieConfig validates cookie configuration
func validateCookieConfig(cfg *authpublic.Config) error {
	switch cfg.GetEnvelope() {
	case "sealed", "signed":
	default:
		return fmt.Errorf("cookie configuration error: %w: %q", sessions.ErrUnknownEnvelope, cfg.Envelope)
	}

	sameSite, err := cfg.Cookie.GetSameSite()
	if err != nil {
		return fmt.Errorf("cookie configuration error: %w", err)
	}
	if sameSite == http.SameSiteNoneMode && !cfg.Cookie.GetSecure() {
		return fmt.Errorf("cookie configuration error: sameSite none requires secure cookies")
	}
	if cfg.Cookie.MaxAgeSeconds < 0 || cfg.Cookie.ExpiresInSeconds < 0 {
		return fmt.Errorf("cookie configuration error: maxAgeSeconds and expiresInSeconds must not be negative")
	}
	return nil
}

// validateRedirectConfig validates redirect configuration
func validateRedirectConfig(cfg *authpublic.Config) error {
	switch cfg.Redirect.GetStatus() {
	case http.StatusFound, http.StatusSeeOther:
	default:
		return fmt.Errorf("redirect configuration error: status must be 302 or 303, got %d", cfg.Redirect.Status)
	}
	if _, err := url.Parse(cfg.Redirect.GetLoginView()); err != nil {
		return fmt.Errorf("redirect configuration error: invalid loginView: %w", err)
	}
	return nil
}

// validateConfig validates the configuration for consistency and required fields.
func validateConfig(cfg *authpublic.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := validateSecret(cfg); err != nil {
		return err
	}
	if err := validateCookieConfig(cfg); err != nil {
		return err
	}
	return validateRedirectConfig(cfg)
}
