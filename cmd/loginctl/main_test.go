package main

import (
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := generateSecret(48)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(secret)
	require.NoError(t, err)
	assert.Len(t, raw, 48)

	other, err := generateSecret(48)
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)

	_, err = generateSecret(16)
	assert.ErrorIs(t, err, sessions.ErrSecretTooShort)
}

func TestKeygenCmd(t *testing.T) {
	cmd := keygenCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--bytes", "32"})

	require.NoError(t, cmd.Execute())

	secret := strings.TrimSpace(out.String())
	assert.GreaterOrEqual(t, len(secret), sessions.MinSecretLength)
}

func TestHashPasswordCmd(t *testing.T) {
	cmd := hashPasswordCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"hunter2"})

	require.NoError(t, cmd.Execute())

	match, err := argon2id.ComparePasswordAndHash("hunter2", strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.True(t, match)
}

func TestInspectValue(t *testing.T) {
	cfg := &authpublic.Config{SecretKey: "0123456789abcdef0123456789abcdef"}

	codec, err := sessions.NewCookieSessionFromConfig(cfg)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0")
	cookies, err := codec.EncodeIntent(authpublic.IntentLoggedIn, `"alice"`, sessions.Fingerprint(h, "example.com"))
	require.NoError(t, err)

	opts := inspectOptions{userAgent: "Mozilla/5.0", host: "example.com"}
	key, ok, err := inspectValue(cfg, opts, cookies[0].Value)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"alice"`, key)

	opts.host = "other.example.com"
	_, ok, err = inspectValue(cfg, opts, cookies[0].Value)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVersionCmd(t *testing.T) {
	cmd := versionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "loginctl dev")
}
