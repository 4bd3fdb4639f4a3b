package loginmanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/jamesread/loginmanager/authpublic"
	"github.com/jamesread/loginmanager/metrics"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jamesread/loginmanager"

// Resolver looks a user up by key, typically in a database. It returns
// ErrUserNotFound (or any other error) when there is no usable user; a nil
// error means the returned user is valid.
type Resolver[K any, U authpublic.UserMinix[K]] func(ctx context.Context, key K, r *http.Request) (U, error)

// Users resolves the current user of a request through a Resolver, at most
// once per request. Create one per user type and share it.
type Users[K any, U authpublic.UserMinix[K]] struct {
	resolve Resolver[K, U]
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

type usersConfig struct {
	metrics *metrics.Recorder
	tracer  trace.Tracer
}

// UsersOption configures Users.
type UsersOption func(*usersConfig)

func WithUserMetrics(r *metrics.Recorder) UsersOption {
	return func(c *usersConfig) {
		c.metrics = r
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) UsersOption {
	return func(c *usersConfig) {
		c.tracer = t
	}
}

func NewUsers[K any, U authpublic.UserMinix[K]](resolve Resolver[K, U], opts ...UsersOption) *Users[K, U] {
	cfg := &usersConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.tracer == nil {
		cfg.tracer = otel.Tracer(tracerName)
	}

	return &Users[K, U]{
		resolve: resolve,
		metrics: cfg.metrics,
		tracer:  cfg.tracer,
	}
}

// userSlot is the per-request cache entry for one user type. The outcome,
// including "no user", is kept for the rest of the request.
type userSlot[U any] struct {
	once  sync.Once
	user  U
	found bool
}

func resolvedSlot[U any](user U, found bool) *userSlot[U] {
	slot := &userSlot[U]{}
	slot.once.Do(func() {
		slot.user = user
		slot.found = found
	})
	return slot
}

func (u *Users[K, U]) slot(state *authpublic.LoginState) *userSlot[U] {
	actual := state.Extensions().LoadOrStore(userSlotKey[U]{}, &userSlot[U]{})
	return actual.(*userSlot[U])
}

type userSlotKey[U any] struct{}

// CurrentOptional returns the current user, or false when there is none.
// The only error is ErrMissingMiddleware.
func (u *Users[K, U]) CurrentOptional(r *http.Request) (U, bool, error) {
	var zero U

	state, err := State(r)
	if err != nil {
		return zero, false, err
	}

	slot := u.slot(state)
	slot.once.Do(func() {
		slot.user, slot.found = u.load(r, state)
	})

	return slot.user, slot.found, nil
}

// Current returns the current user or ErrUnauthenticated.
func (u *Users[K, U]) Current(r *http.Request) (U, error) {
	user, found, err := u.CurrentOptional(r)
	if err != nil {
		return user, err
	}
	if !found {
		return user, ErrUnauthenticated
	}
	return user, nil
}

// AuthOptional is CurrentOptional, but a resolved user who is not active or
// not authenticated is rejected with ErrUnauthenticated.
func (u *Users[K, U]) AuthOptional(r *http.Request) (U, bool, error) {
	user, found, err := u.CurrentOptional(r)
	if err != nil || !found {
		return user, found, err
	}
	if !u.usable(user) {
		var zero U
		return zero, false, ErrUnauthenticated
	}
	return user, true, nil
}

// Auth returns the current user if they are active and authenticated, or ErrUnauthenticated.
func (u *Users[K, U]) Auth(r *http.Request) (U, error) {
	user, err := u.Current(r)
	if err != nil {
		return user, err
	}
	if !u.usable(user) {
		var zero U
		return zero, ErrUnauthenticated
	}
	return user, nil
}

func (u *Users[K, U]) usable(user U) bool {
	return user.IsActive() && user.IsAuthenticated()
}

// Login logs user in for the response and makes them the current user for
// the rest of this request.
func (u *Users[K, U]) Login(r *http.Request, user U) error {
	state, err := State(r)
	if err != nil {
		return err
	}

	key, err := json.Marshal(user.GetID())
	if err != nil {
		return fmt.Errorf("loginmanager: failed to serialise user id: %w", err)
	}

	state.Login(string(key))
	state.Extensions().Set(userSlotKey[U]{}, resolvedSlot(user, true))

	return nil
}

// Logout clears the session on the response and forgets the current user.
func (u *Users[K, U]) Logout(r *http.Request) error {
	state, err := State(r)
	if err != nil {
		return err
	}

	var zero U
	state.Logout()
	state.Extensions().Set(userSlotKey[U]{}, resolvedSlot(zero, false))

	return nil
}

// RequireCurrent answers 401 unless Current succeeds.
func (u *Users[K, U]) RequireCurrent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := u.Current(r); err != nil {
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless Auth succeeds.
func (u *Users[K, U]) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := u.Auth(r); err != nil {
			WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (u *Users[K, U]) load(r *http.Request, state *authpublic.LoginState) (U, bool) {
	var zero U

	raw, ok := state.RecoveredIdentifier()
	if !ok {
		return zero, false
	}

	var key K
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		u.metrics.UserLookup(metrics.LookupBadKey)
		log.WithFields(log.Fields{
			"path":  getRequestPath(r),
			"type":  fmt.Sprintf("%T", key),
			"error": err,
		}).Debug("Recovered identifier does not match the user key type")
		return zero, false
	}

	return u.lookup(r, key)
}

func (u *Users[K, U]) lookup(r *http.Request, key K) (U, bool) {
	var zero U

	ctx, span := u.tracer.Start(r.Context(), "loginmanager.resolve_user",
		trace.WithAttributes(attribute.String("loginmanager.user_type", fmt.Sprintf("%T", zero))),
	)
	defer span.End()

	user, err := u.resolve(ctx, key, r)

	switch {
	case err == nil:
		u.metrics.UserLookup(metrics.LookupFound)
		span.SetAttributes(attribute.Bool("loginmanager.user_found", true))
		return user, true
	case errors.Is(err, ErrUserNotFound):
		u.metrics.UserLookup(metrics.LookupNotFound)
		span.SetAttributes(attribute.Bool("loginmanager.user_found", false))
	default:
		u.metrics.UserLookup(metrics.LookupError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		log.WithFields(log.Fields{
			"path":  getRequestPath(r),
			"error": err,
		}).Warn("User lookup failed, treating request as anonymous")
	}

	return zero, false
}
