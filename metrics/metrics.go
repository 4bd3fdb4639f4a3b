// Package metrics exposes Prometheus counters for the login middleware.
//
// A nil *Recorder is valid and records nothing, so callers never need to
// check whether metrics were configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "loginmanager"

// Decode results
const (
	DecodeMissing             = "missing"
	DecodeInvalid             = "invalid"
	DecodeMalformed           = "malformed"
	DecodeFingerprintMismatch = "fingerprint_mismatch"
	DecodeAnonymous           = "anonymous"
	DecodeOK                  = "ok"
)

// User lookup results
const (
	LookupFound    = "found"
	LookupNotFound = "not_found"
	LookupError    = "error"
	LookupBadKey   = "bad_key"
)

type Recorder struct {
	cookieDecodes *prometheus.CounterVec
	cookieWrites  *prometheus.CounterVec
	redirects     prometheus.Counter
	userLookups   *prometheus.CounterVec
}

// NewRecorder creates the counters and registers them on reg. A nil reg
// creates unregistered counters, which is useful in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		cookieDecodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cookie_decode_total",
				Help:      "Inbound session cookies by decode result",
			},
			[]string{"result"},
		),
		cookieWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cookie_writes_total",
				Help:      "Outbound session cookies by intent",
			},
			[]string{"intent"},
		),
		redirects: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "redirects_total",
				Help:      "Unauthenticated responses replaced by a redirect to the login view",
			},
		),
		userLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "user_lookups_total",
				Help:      "Resolver calls by result",
			},
			[]string{"result"},
		),
	}
}

func (r *Recorder) CookieDecoded(result string) {
	if r == nil {
		return
	}
	r.cookieDecodes.WithLabelValues(result).Inc()
}

func (r *Recorder) CookieWritten(intent string) {
	if r == nil {
		return
	}
	r.cookieWrites.WithLabelValues(intent).Inc()
}

func (r *Recorder) Redirected() {
	if r == nil {
		return
	}
	r.redirects.Inc()
}

func (r *Recorder) UserLookup(result string) {
	if r == nil {
		return
	}
	r.userLookups.WithLabelValues(result).Inc()
}
