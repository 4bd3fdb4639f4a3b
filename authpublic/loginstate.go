package authpublic

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Intent is the login decision made while handling a single request.
type Intent int

const (
	// IntentUnset means the handler made no decision; the client's cookie is left alone.
	IntentUnset Intent = iota
	// IntentLoggedIn means a new session cookie carrying the login key is written.
	IntentLoggedIn
	// IntentLoggedOut means the session cookie is replaced by an empty one.
	IntentLoggedOut
)

func (i Intent) String() string {
	switch i {
	case IntentLoggedIn:
		return "login"
	case IntentLoggedOut:
		return "logout"
	default:
		return "unset"
	}
}

// LoginState is the per-request record of authentication intent. One is
// created by the middleware for every request and shared by the decode step,
// the handler and the update step. It is safe for concurrent use.
type LoginState struct {
	mu sync.RWMutex

	recovered    string
	hasRecovered bool

	intent   Intent
	loginKey string

	fingerprint    string
	hasFingerprint bool

	committed bool

	ext *Extensions
}

func NewLoginState() *LoginState {
	return &LoginState{
		ext: NewExtensions(),
	}
}

// Login records that the response should log the user identified by key in.
// A later call to Login or Logout in the same request overrides this one.
// A user already cached for this request is not changed; use Users.Login to
// keep it in step.
func (s *LoginState) Login(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intent = IntentLoggedIn
	s.loginKey = key
	s.warnIfCommitted("login")
}

// Logout records that the response should clear the session, and forgets the
// identifier recovered from the inbound cookie. A user already cached for
// this request is not cleared; use Users.Logout to keep it in step.
func (s *LoginState) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.intent = IntentLoggedOut
	s.loginKey = ""
	s.recovered = ""
	s.hasRecovered = false
	s.warnIfCommitted("logout")
}

// Intent returns the current intent, and the login key when the intent is IntentLoggedIn.
func (s *LoginState) Intent() (Intent, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.intent, s.loginKey
}

// RecoveredIdentifier returns the key decoded from the inbound cookie.
func (s *LoginState) RecoveredIdentifier() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.recovered, s.hasRecovered
}

func (s *LoginState) SetRecoveredIdentifier(key string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		key = ""
	}

	s.recovered = key
	s.hasRecovered = ok
}

func (s *LoginState) Fingerprint() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fingerprint, s.hasFingerprint
}

func (s *LoginState) SetFingerprint(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fingerprint = fp
	s.hasFingerprint = true
}

// FingerprintOnce returns the cached fingerprint, calling compute only if none
// has been stored yet for this request.
func (s *LoginState) FingerprintOnce(compute func() string) string {
	if fp, ok := s.Fingerprint(); ok {
		return fp
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasFingerprint {
		s.fingerprint = compute()
		s.hasFingerprint = true
	}

	return s.fingerprint
}

// Extensions returns the request's extension bag.
func (s *LoginState) Extensions() *Extensions {
	return s.ext
}

// Committed reports whether the response headers carrying this state were already written.
func (s *LoginState) Committed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.committed
}

// MarkCommitted is called by the middleware once Set-Cookie has been computed.
func (s *LoginState) MarkCommitted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed = true
}

// caller holds s.mu
func (s *LoginState) warnIfCommitted(op string) {
	if s.committed {
		log.WithFields(log.Fields{
			"op": op,
		}).Warn("LoginState changed after the response was written; the session cookie will not be updated")
	}
}
