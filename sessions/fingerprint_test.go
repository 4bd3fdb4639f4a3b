package sessions

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func headerWithAgent(agent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", agent)
	return h
}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint(headerWithAgent("Mozilla/5.0"), "example.com")
	b := Fingerprint(headerWithAgent("Mozilla/5.0"), "example.com")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprint_DependsOnInputs(t *testing.T) {
	base := Fingerprint(headerWithAgent("Mozilla/5.0"), "example.com")

	assert.NotEqual(t, base, Fingerprint(headerWithAgent("curl/8.0"), "example.com"))
	assert.NotEqual(t, base, Fingerprint(headerWithAgent("Mozilla/5.0"), "other.example.com"))
}

func TestFingerprint_SentinelForAbsentValues(t *testing.T) {
	absent := Fingerprint(http.Header{}, "")
	explicit := Fingerprint(headerWithAgent(agentSentinel), hostSentinel)

	assert.Equal(t, explicit, absent)
}

func TestFingerprint_SentinelForInvalidText(t *testing.T) {
	invalid := Fingerprint(headerWithAgent("bad\x00agent"), "host\xff")
	absent := Fingerprint(http.Header{}, "")

	assert.Equal(t, absent, invalid)
}

func TestFingerprint_FirstUserAgentWins(t *testing.T) {
	h := http.Header{}
	h.Add("User-Agent", "first")
	h.Add("User-Agent", "second")

	assert.Equal(t, Fingerprint(headerWithAgent("first"), "h"), Fingerprint(h, "h"))
}

func TestRequestFingerprint_UsesHost(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.com/path", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")

	assert.Equal(t, Fingerprint(headerWithAgent("Mozilla/5.0"), "example.com"), RequestFingerprint(req))
}
