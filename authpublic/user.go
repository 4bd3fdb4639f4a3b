package authpublic

// UserMinix is the capability set an integrator's user type must expose.
// K is the key the user is looked up by; it is stored in the session cookie
// as JSON, so it must round-trip through encoding/json.
type UserMinix[K any] interface {
	// GetID returns the key the user is stored under.
	GetID() K

	// IsAuthenticated reports the user's actual authentication status.
	IsAuthenticated() bool

	// IsActive reports whether the account may be used.
	IsActive() bool
}

// UserFlags can be embedded in a user type to get IsAuthenticated and
// IsActive implementations that always return true.
type UserFlags struct{}

func (UserFlags) IsAuthenticated() bool {
	return true
}

func (UserFlags) IsActive() bool {
	return true
}
