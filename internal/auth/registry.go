package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultUser is the user an AUTH without a username authenticates as.
const DefaultUser = "default"

// Authentication failures.
var (
	// ErrBadCredentials covers both unknown users and wrong passwords,
	// so probing cannot tell them apart.
	ErrBadCredentials = errors.New("invalid username-password pair")

	// ErrThrottled reports too many failed attempts for a user.
	ErrThrottled = errors.New("too many authentication attempts")

	// ErrAuthDisabled reports an AUTH against a registry with no users.
	ErrAuthDisabled = errors.New("client sent AUTH, but no password is set")
)

// User is one configured login.
type User struct {
	Name string
	// PasswordHash is an argon2id PHC string.
	PasswordHash string
}

// Attempt throttle per user: a small burst, then one try per second.
const (
	attemptRate  = rate.Limit(1)
	attemptBurst = 5
)

// Registry authenticates connections against the configured users.
type Registry struct {
	users map[string]string // name -> PHC hash

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewRegistry builds a registry, validating every stored hash. An
// empty user list disables authentication.
func NewRegistry(users []User) (*Registry, error) {
	r := &Registry{
		users:    make(map[string]string, len(users)),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, u := range users {
		if u.Name == "" {
			return nil, fmt.Errorf("auth: user with empty name")
		}
		if _, dup := r.users[u.Name]; dup {
			return nil, fmt.Errorf("auth: duplicate user %q", u.Name)
		}
		if err := CheckHash(u.PasswordHash); err != nil {
			return nil, fmt.Errorf("auth: user %q: %w", u.Name, err)
		}
		r.users[u.Name] = u.PasswordHash
	}
	return r, nil
}

// Enabled reports whether any user is configured. When false, every
// connection is implicitly authenticated.
func (r *Registry) Enabled() bool {
	return len(r.users) > 0
}

// Authenticate verifies the pair. Failures for one user are throttled;
// the limiter only charges failed attempts.
func (r *Registry) Authenticate(username, password string) error {
	if !r.Enabled() {
		return ErrAuthDisabled
	}

	lim := r.limiter(username)
	if lim.Tokens() < 1 {
		return ErrThrottled
	}

	phc, ok := r.users[username]
	if ok && Verify(password, phc) {
		return nil
	}
	// Unknown user burns the same work budget as a wrong password.
	if !ok {
		Verify(password, decoyHash)
	}
	lim.Allow()
	return ErrBadCredentials
}

func (r *Registry) limiter(username string) *rate.Limiter {
	r.mu.RLock()
	lim, ok := r.limiters[username]
	r.mu.RUnlock()
	if ok {
		return lim
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring the write lock.
	if lim, ok := r.limiters[username]; ok {
		return lim
	}
	lim = rate.NewLimiter(attemptRate, attemptBurst)
	r.limiters[username] = lim
	return lim
}

// decoyHash keeps the timing of unknown-user failures in line with
// wrong-password failures. Generated once from a random password.
var decoyHash = func() string {
	h, err := Hash("kvgate-decoy")
	if err != nil {
		// rand.Read failing means the process cannot do crypto at all.
		panic(err)
	}
	return h
}()
