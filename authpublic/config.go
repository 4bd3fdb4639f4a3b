package authpublic

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	// SecretKey is the process-wide secret the session cookie is keyed from.
	// It must be at least 32 bytes long.
	SecretKey string `yaml:"secretKey"`

	// SecretKeyFile is read instead of SecretKey when SecretKey is empty.
	// Trailing whitespace is trimmed.
	SecretKeyFile string `yaml:"secretKeyFile"`

	// PreviousSecretKeys are accepted when decoding cookies but never used to
	// encode them. Use these while rotating SecretKey.
	PreviousSecretKeys []string `yaml:"previousSecretKeys"`

	// Envelope selects the cookie protection: "sealed" (AES-GCM, default) or
	// "signed" (HS256 JWT, readable by the client).
	Envelope string `yaml:"envelope"`

	Cookie CookieConfig `yaml:"cookie"`

	Redirect RedirectConfig `yaml:"redirect"`
}

// CookieConfig contains the attributes applied to the outbound session cookie
type CookieConfig struct {
	// Name defaults to "_session"
	Name string `yaml:"name"`

	// Path defaults to "/"
	Path string `yaml:"path"`

	Domain string `yaml:"domain"`

	// Secure defaults to true
	Secure *bool `yaml:"secure"`

	// HttpOnly defaults to true
	HttpOnly *bool `yaml:"httpOnly"`

	// SameSite is one of "lax", "strict", "none" or empty for no attribute
	SameSite string `yaml:"sameSite"`

	// MaxAgeSeconds sets Max-Age. Zero means a session cookie.
	MaxAgeSeconds int `yaml:"maxAgeSeconds"`

	// ExpiresInSeconds sets Expires relative to the time the cookie is written.
	ExpiresInSeconds int `yaml:"expiresInSeconds"`
}

// RedirectConfig controls what happens to responses with status 401
type RedirectConfig struct {
	// Enabled defaults to true
	Enabled *bool `yaml:"enabled"`

	// LoginView defaults to "/login"
	LoginView string `yaml:"loginView"`

	// NextParam defaults to "next"
	NextParam string `yaml:"nextParam"`

	// Status is 302 (default) or 303
	Status int `yaml:"status"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// GetSecret returns the configured secret, reading SecretKeyFile if needed
func (c *Config) GetSecret() ([]byte, error) {
	if c.SecretKey != "" {
		return []byte(c.SecretKey), nil
	}

	if c.SecretKeyFile == "" {
		return nil, fmt.Errorf("no secretKey or secretKeyFile configured")
	}

	data, err := os.ReadFile(c.SecretKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read secretKeyFile: %w", err)
	}

	return []byte(strings.TrimRight(string(data), " \r\n\t")), nil
}

// GetPreviousSecrets returns the rotation secrets as byte slices
func (c *Config) GetPreviousSecrets() [][]byte {
	ret := make([][]byte, 0, len(c.PreviousSecretKeys))
	for _, k := range c.PreviousSecretKeys {
		if k != "" {
			ret = append(ret, []byte(k))
		}
	}
	return ret
}

// GetEnvelope returns the envelope name, with default fallback
func (c *Config) GetEnvelope() string {
	if c.Envelope != "" {
		return strings.ToLower(c.Envelope)
	}
	return "sealed"
}

// GetName returns the cookie name, with default fallback
func (c *CookieConfig) GetName() string {
	if c.Name != "" {
		return c.Name
	}
	return "_session"
}

// GetPath returns the cookie path, with default fallback
func (c *CookieConfig) GetPath() string {
	if c.Path != "" {
		return c.Path
	}
	return "/"
}

func (c *CookieConfig) GetSecure() bool {
	return boolOrDefault(c.Secure, true)
}

func (c *CookieConfig) GetHttpOnly() bool {
	return boolOrDefault(c.HttpOnly, true)
}

// GetSameSite parses SameSite. Unknown values return an error.
func (c *CookieConfig) GetSameSite() (http.SameSite, error) {
	switch strings.ToLower(c.SameSite) {
	case "":
		return http.SameSiteDefaultMode, nil
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("unknown sameSite value %q", c.SameSite)
	}
}

func (c *CookieConfig) GetMaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

func (c *CookieConfig) GetExpiresIn() time.Duration {
	return time.Duration(c.ExpiresInSeconds) * time.Second
}

func (c *RedirectConfig) GetEnabled() bool {
	return boolOrDefault(c.Enabled, true)
}

// GetLoginView returns the login view path, with default fallback
func (c *RedirectConfig) GetLoginView() string {
	if c.LoginView != "" {
		return c.LoginView
	}
	return "/login"
}

// GetNextParam returns the query parameter carrying the original path
func (c *RedirectConfig) GetNextParam() string {
	if c.NextParam != "" {
		return c.NextParam
	}
	return "next"
}

// GetStatus returns the redirect status code, with default fallback
func (c *RedirectConfig) GetStatus() int {
	if c.Status != 0 {
		return c.Status
	}
	return http.StatusFound
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
