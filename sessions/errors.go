package sessions

import "errors"

var (
	// ErrSecretTooShort is returned when the secret is shorter than MinSecretLength.
	ErrSecretTooShort = errors.New("sessions: secret must be at least 32 bytes")

	// ErrInvalidCookie is returned by Envelope.Open for any value that was not
	// produced by the same envelope and key: truncated, re-encoded, tampered
	// with or moved to another cookie name.
	ErrInvalidCookie = errors.New("sessions: invalid cookie value")

	// ErrUnknownEnvelope is returned for an envelope name other than "sealed" or "signed".
	ErrUnknownEnvelope = errors.New("sessions: unknown envelope")
)
