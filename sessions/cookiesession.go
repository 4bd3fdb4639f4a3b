package sessions

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jamesread/golure/pkg/redact"
	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/metrics"
	log "github.com/sirupsen/logrus"
)

// session is the payload stored inside the cookie.
type session struct {
	ID     string  `json:"id"`
	UserID *string `json:"user_id"`
}

// CookieSession stores the login key in a single protected cookie, bound to
// the fingerprint of the request that set it. It holds no per-request state
// and is safe for concurrent use once constructed.
type CookieSession struct {
	envelope Envelope
	previous []Envelope

	name      string
	path      string
	domain    string
	secure    bool
	httpOnly  bool
	sameSite  http.SameSite
	maxAge    time.Duration
	expiresIn time.Duration

	previousSecrets [][]byte
	now             func() time.Time
	metrics         *metrics.Recorder
}

// Option configures a CookieSession.
type Option func(*CookieSession)

// WithName sets the cookie name. Default: "_session"
func WithName(name string) Option {
	return func(c *CookieSession) {
		if name != "" {
			c.name = name
		}
	}
}

func WithPath(path string) Option {
	return func(c *CookieSession) {
		c.path = path
	}
}

func WithDomain(domain string) Option {
	return func(c *CookieSession) {
		c.domain = domain
	}
}

// WithSecure sets the Secure attribute. Default: true
func WithSecure(secure bool) Option {
	return func(c *CookieSession) {
		c.secure = secure
	}
}

// WithHTTPOnly sets the HttpOnly attribute. Default: true
func WithHTTPOnly(httpOnly bool) Option {
	return func(c *CookieSession) {
		c.httpOnly = httpOnly
	}
}

func WithSameSite(sameSite http.SameSite) Option {
	return func(c *CookieSession) {
		c.sameSite = sameSite
	}
}

// WithMaxAge sets Max-Age, rounded up to whole seconds. Zero keeps a
// session cookie.
func WithMaxAge(maxAge time.Duration) Option {
	return func(c *CookieSession) {
		c.maxAge = maxAge
	}
}

// WithExpiresIn sets Expires to the write time plus d.
func WithExpiresIn(d time.Duration) Option {
	return func(c *CookieSession) {
		c.expiresIn = d
	}
}

// WithEnvelope replaces the default sealed envelope.
func WithEnvelope(e Envelope) Option {
	return func(c *CookieSession) {
		c.envelope = e
	}
}

// WithPreviousSecrets accepts cookies sealed with older secrets, using the
// same kind of envelope as the primary.
func WithPreviousSecrets(secrets ...[]byte) Option {
	return func(c *CookieSession) {
		c.previousSecrets = append(c.previousSecrets, secrets...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *CookieSession) {
		c.now = now
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(c *CookieSession) {
		c.metrics = m
	}
}

// NewCookieSession builds a codec keyed from secret, which must be at least
// MinSecretLength bytes.
func NewCookieSession(secret []byte, opts ...Option) (*CookieSession, error) {
	c := &CookieSession{
		name:     "_session",
		path:     "/",
		secure:   true,
		httpOnly: true,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.envelope == nil {
		e, err := NewSealedEnvelope(secret)
		if err != nil {
			return nil, err
		}
		c.envelope = e
	}

	for i, prev := range c.previousSecrets {
		e, err := newEnvelopeLike(c.envelope, prev)
		if err != nil {
			return nil, fmt.Errorf("previous secret %d: %w", i, err)
		}
		c.previous = append(c.previous, e)
	}
	c.previousSecrets = nil

	return c, nil
}

// NewCookieSessionFromConfig builds a codec from the secret and cookie settings in cfg.
func NewCookieSessionFromConfig(cfg *authpublic.Config, opts ...Option) (*CookieSession, error) {
	secret, err := cfg.GetSecret()
	if err != nil {
		return nil, err
	}

	envelope, err := NewEnvelope(cfg.GetEnvelope(), secret)
	if err != nil {
		return nil, err
	}

	sameSite, err := cfg.Cookie.GetSameSite()
	if err != nil {
		return nil, err
	}

	base := []Option{
		WithEnvelope(envelope),
		WithName(cfg.Cookie.GetName()),
		WithPath(cfg.Cookie.GetPath()),
		WithDomain(cfg.Cookie.Domain),
		WithSecure(cfg.Cookie.GetSecure()),
		WithHTTPOnly(cfg.Cookie.GetHttpOnly()),
		WithSameSite(sameSite),
		WithMaxAge(cfg.Cookie.GetMaxAge()),
		WithExpiresIn(cfg.Cookie.GetExpiresIn()),
		WithPreviousSecrets(cfg.GetPreviousSecrets()...),
	}

	return NewCookieSession(secret, append(base, opts...)...)
}

func newEnvelopeLike(primary Envelope, secret []byte) (Envelope, error) {
	switch primary.(type) {
	case *SignedEnvelope:
		return NewSignedEnvelope(secret)
	default:
		return NewSealedEnvelope(secret)
	}
}

// Name returns the cookie name.
func (c *CookieSession) Name() string {
	return c.name
}

// findCookieValue returns the value of the last `name=` pair across all Cookie header lines.
func (c *CookieSession) findCookieValue(cookieHeaders []string) string {
	prefix := c.name + "="
	found := ""

	for _, line := range cookieHeaders {
		for _, part := range strings.Split(line, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, prefix) {
				found = strings.TrimPrefix(part, prefix)
			}
		}
	}

	if len(found) >= 2 && found[0] == '"' && found[len(found)-1] == '"' {
		found = found[1 : len(found)-1]
	}

	return found
}

func (c *CookieSession) open(value string) ([]byte, bool) {
	if plaintext, err := c.envelope.Open(c.name, value); err == nil {
		return plaintext, true
	}

	for _, e := range c.previous {
		if plaintext, err := e.Open(c.name, value); err == nil {
			return plaintext, true
		}
	}

	return nil, false
}

// DecodeValue recovers the user key from the Cookie header lines. A missing,
// malformed, forged or foreign cookie returns false; it is never an error.
func (c *CookieSession) DecodeValue(cookieHeaders []string, fingerprint string) (string, bool) {
	raw := c.findCookieValue(cookieHeaders)
	if raw == "" {
		c.decoded(metrics.DecodeMissing, raw)
		return "", false
	}

	plaintext, ok := c.open(raw)
	if !ok {
		c.decoded(metrics.DecodeInvalid, raw)
		return "", false
	}

	sess := &session{}
	if err := json.Unmarshal(plaintext, sess); err != nil {
		c.decoded(metrics.DecodeMalformed, raw)
		return "", false
	}

	if sess.ID != fingerprint {
		c.decoded(metrics.DecodeFingerprintMismatch, raw)
		return "", false
	}

	if sess.UserID == nil {
		c.decoded(metrics.DecodeAnonymous, raw)
		return "", false
	}

	c.decoded(metrics.DecodeOK, raw)
	return *sess.UserID, true
}

func (c *CookieSession) decoded(result string, raw string) {
	c.metrics.CookieDecoded(result)

	if result == metrics.DecodeOK || result == metrics.DecodeMissing {
		return
	}

	log.WithFields(log.Fields{
		"cookie": c.name,
		"value":  redact.RedactString(raw),
		"result": result,
	}).Debug("Session cookie not accepted")
}

// EncodeIntent returns the cookies that carry intent to the client. An unset
// intent returns none, leaving the client's cookie untouched. A logout writes
// a session with no user, which decodes as anonymous.
func (c *CookieSession) EncodeIntent(intent authpublic.Intent, key string, fingerprint string) ([]*http.Cookie, error) {
	sess := &session{ID: fingerprint}

	switch intent {
	case authpublic.IntentLoggedIn:
		sess.UserID = &key
	case authpublic.IntentLoggedOut:
	default:
		return nil, nil
	}

	plaintext, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("sessions: failed to marshal session: %w", err)
	}

	value, err := c.envelope.Seal(c.name, plaintext)
	if err != nil {
		return nil, err
	}

	c.metrics.CookieWritten(intent.String())

	return []*http.Cookie{c.buildCookie(value)}, nil
}

func (c *CookieSession) buildCookie(value string) *http.Cookie {
	cookie := &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     c.path,
		Domain:   c.domain,
		Secure:   c.secure,
		HttpOnly: c.httpOnly,
		SameSite: c.sameSite,
	}

	if c.expiresIn > 0 {
		cookie.Expires = c.now().Add(c.expiresIn).UTC()
	}

	if c.maxAge > 0 {
		cookie.MaxAge = int((c.maxAge + time.Second - 1) / time.Second)
	}

	return cookie
}

// Decode implements the middleware decoder. It never fails: a bad cookie
// simply means no one is logged in.
func (c *CookieSession) Decode(r *http.Request, state *authpublic.LoginState) (string, bool, error) {
	fp := state.FingerprintOnce(func() string {
		return RequestFingerprint(r)
	})

	key, ok := c.DecodeValue(r.Header.Values("Cookie"), fp)
	return key, ok, nil
}

// Update appends the Set-Cookie header for the final intent in state.
func (c *CookieSession) Update(h http.Header, r *http.Request, state *authpublic.LoginState) error {
	intent, key := state.Intent()
	if intent == authpublic.IntentUnset {
		return nil
	}

	fp := state.FingerprintOnce(func() string {
		return RequestFingerprint(r)
	})

	cookies, err := c.EncodeIntent(intent, key, fp)
	if err != nil {
		return err
	}

	for _, cookie := range cookies {
		v := cookie.String()
		if v == "" {
			return fmt.Errorf("sessions: cookie %q has an invalid name", cookie.Name)
		}
		h.Add("Set-Cookie", v)
	}

	return nil
}
