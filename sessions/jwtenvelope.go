package sessions

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type envelopeClaims struct {
	Data []byte `json:"dat"`
	jwt.RegisteredClaims
}

// SignedEnvelope stores cookie values as HS256 JWTs. The value is tamper
// evident but not confidential: the client can base64-decode the payload and
// read the user key. Prefer SealedEnvelope unless another service needs to
// read the cookie.
type SignedEnvelope struct {
	key    []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewSignedEnvelope(secret []byte) (*SignedEnvelope, error) {
	key, err := deriveKey(secret, signedKeyInfo)
	if err != nil {
		return nil, err
	}

	return &SignedEnvelope{
		key:    key,
		method: jwt.SigningMethodHS256,
		now:    time.Now,
	}, nil
}

func (e *SignedEnvelope) Seal(name string, plaintext []byte) (string, error) {
	claims := &envelopeClaims{
		Data: plaintext,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  name,
			IssuedAt: jwt.NewNumericDate(e.now()),
		},
	}

	signed, err := jwt.NewWithClaims(e.method, claims).SignedString(e.key)
	if err != nil {
		return "", fmt.Errorf("sessions: failed to sign cookie: %w", err)
	}

	return signed, nil
}

func (e *SignedEnvelope) Open(name string, value string) ([]byte, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{e.method.Alg()}),
		jwt.WithSubject(name),
		jwt.WithStrictDecoding(),
	)

	claims := &envelopeClaims{}
	token, err := parser.ParseWithClaims(value, claims, e.keyfunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidCookie
	}

	return claims.Data, nil
}

func (e *SignedEnvelope) keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return e.key, nil
}
