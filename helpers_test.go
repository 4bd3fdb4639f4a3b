package loginmanager

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/sessions"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T, opts ...Option) *LoginManager {
	codec, err := sessions.NewCookieSession([]byte(testSecret))
	require.NoError(t, err)

	return New(codec, opts...)
}

// serve runs one request through the manager and handler, sending cookies as the Cookie header.
func serve(m *LoginManager, handler http.HandlerFunc, method, target string, cookies ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.Header.Add("Cookie", c)
	}

	rec := httptest.NewRecorder()
	m.Middleware(handler).ServeHTTP(rec, req)

	return rec
}

// sessionCookie turns the response's Set-Cookie into a request Cookie header value.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	lines := rec.Result().Header.Values("Set-Cookie")
	require.Len(t, lines, 1)

	cookie, err := http.ParseSetCookie(lines[0])
	require.NoError(t, err)

	return cookie.Name + "=" + cookie.Value
}

// loginAs returns a cookie header for a request that called Login(key).
func loginAs(t *testing.T, m *LoginManager, key string) string {
	rec := serve(m, func(w http.ResponseWriter, r *http.Request) {
		authpublic.LoginStateFromRequest(r).Login(key)
	}, "GET", "/login")

	return sessionCookie(t, rec)
}

type fakeDecoder struct {
	decodeErr error
	updateErr error
	decodes   int
	updates   int
}

func (d *fakeDecoder) Decode(r *http.Request, state *authpublic.LoginState) (string, bool, error) {
	d.decodes++
	if d.decodeErr != nil {
		return "", false, d.decodeErr
	}
	return "", false, nil
}

func (d *fakeDecoder) Update(h http.Header, r *http.Request, state *authpublic.LoginState) error {
	d.updates++
	h.Add("Set-Cookie", "partial=1")
	return d.updateErr
}

func httpRequest() *http.Request {
	return httptest.NewRequest("GET", "/", nil)
}

// recorderFor serves a request that has not passed through any LoginManager.
func recorderFor(h http.Handler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httpRequest())
	return rec
}
