package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"net/http"
)

const (
	fingerprintPreamble = "loginmanager"
	agentSentinel       = "agent-fake"
	hostSentinel        = "host-fake"
)

// Fingerprint hashes the User-Agent header and host of a request into a hex
// SHA-256 string. A session cookie is only trusted by a request with the same
// fingerprint as the request that issued it.
//
// This is a soft binding. Both inputs are chosen by the client, so anyone who
// copies a cookie can also copy the headers. It stops naive replay of a cookie
// in an unrelated browser and nothing more.
func Fingerprint(h http.Header, host string) string {
	hasher := sha256.New()
	hasher.Write([]byte(fingerprintPreamble))

	writeHeaderText(hasher, firstHeaderValue(h, "User-Agent"), agentSentinel)
	writeHeaderText(hasher, host, hostSentinel)

	return hex.EncodeToString(hasher.Sum(nil))
}

// RequestFingerprint computes Fingerprint for r. net/http removes Host from
// r.Header, so r.Host is used.
func RequestFingerprint(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = r.Header.Get("Host")
	}
	return Fingerprint(r.Header, host)
}

func firstHeaderValue(headers http.Header, key string) string {
	values := headers.Values(key)
	if len(values) > 0 {
		return values[0]
	}
	return ""
}

func writeHeaderText(hasher hash.Hash, value string, sentinel string) {
	if value == "" || !isHeaderText(value) {
		hasher.Write([]byte(sentinel))
		return
	}
	hasher.Write([]byte(value))
}

// isHeaderText accepts visible ASCII, space and tab.
func isHeaderText(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}
