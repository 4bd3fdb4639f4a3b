package authpublic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoginState_DefaultsToUnset(t *testing.T) {
	state := NewLoginState()

	intent, key := state.Intent()
	assert.Equal(t, IntentUnset, intent)
	assert.Empty(t, key)

	_, ok := state.RecoveredIdentifier()
	assert.False(t, ok)
	assert.False(t, state.Committed())
}

func TestLoginState_LastWriteWins(t *testing.T) {
	state := NewLoginState()

	state.Login("alice")
	state.Logout()
	state.Login("bob")

	intent, key := state.Intent()
	assert.Equal(t, IntentLoggedIn, intent)
	assert.Equal(t, "bob", key)

	state.Logout()

	intent, key = state.Intent()
	assert.Equal(t, IntentLoggedOut, intent)
	assert.Empty(t, key)
}

func TestLoginState_LogoutClearsRecovered(t *testing.T) {
	state := NewLoginState()
	state.SetRecoveredIdentifier(`"alice"`, true)

	recovered, ok := state.RecoveredIdentifier()
	assert.True(t, ok)
	assert.Equal(t, `"alice"`, recovered)

	state.Logout()

	_, ok = state.RecoveredIdentifier()
	assert.False(t, ok)
}

func TestLoginState_SetRecoveredIdentifierNotOk(t *testing.T) {
	state := NewLoginState()
	state.SetRecoveredIdentifier("ignored", false)

	recovered, ok := state.RecoveredIdentifier()
	assert.False(t, ok)
	assert.Empty(t, recovered)
}

func TestLoginState_FingerprintOnce(t *testing.T) {
	state := NewLoginState()
	calls := 0

	compute := func() string {
		calls++
		return "fp"
	}

	assert.Equal(t, "fp", state.FingerprintOnce(compute))
	assert.Equal(t, "fp", state.FingerprintOnce(compute))
	assert.Equal(t, 1, calls)

	fp, ok := state.Fingerprint()
	assert.True(t, ok)
	assert.Equal(t, "fp", fp)
}

func TestLoginState_FingerprintOnceRespectsSetFingerprint(t *testing.T) {
	state := NewLoginState()
	state.SetFingerprint("preset")

	fp := state.FingerprintOnce(func() string {
		t.Fatal("compute should not be called")
		return ""
	})

	assert.Equal(t, "preset", fp)
}

func TestLoginState_FingerprintOnceConcurrent(t *testing.T) {
	state := NewLoginState()

	var mu sync.Mutex
	calls := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.FingerprintOnce(func() string {
				mu.Lock()
				calls++
				mu.Unlock()
				return "fp"
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestLoginState_Committed(t *testing.T) {
	state := NewLoginState()
	state.MarkCommitted()
	assert.True(t, state.Committed())

	// Still recorded, but too late to reach the client.
	state.Login("late")
	intent, key := state.Intent()
	assert.Equal(t, IntentLoggedIn, intent)
	assert.Equal(t, "late", key)
}

func TestIntent_String(t *testing.T) {
	assert.Equal(t, "unset", IntentUnset.String())
	assert.Equal(t, "login", IntentLoggedIn.String())
	assert.Equal(t, "logout", IntentLoggedOut.String())
}
