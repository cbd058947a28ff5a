package access

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 15 * time.Minute

	attemptsPrefix = "access:attempts:"
	lockoutPrefix  = "access:lockout:"
)

// IncorrectPasswordError reports a miss that did not trigger the lockout.
type IncorrectPasswordError struct {
	Remaining int
}

func (e *IncorrectPasswordError) Error() string {
	return fmt.Sprintf("Incorrect password. %d attempts remaining.", e.Remaining)
}

// LockedError is returned on the failure that starts a lockout and on every
// attempt while it lasts.
type LockedError struct {
	Until time.Time
	Wait  time.Duration
}

func (e *LockedError) Error() string {
	mins := int(math.Ceil(e.Wait.Minutes()))
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("Too many failed attempts. Please try again in %d minutes.", mins)
}

// Status is what the password screen shows for one client.
type Status struct {
	Enabled     bool       `json:"enabled"`
	Locked      bool       `json:"locked"`
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"maxAttempts"`
}

// Guard checks the shared access password. Failed attempts and lockouts are
// counted per client key in Redis. A Guard without a hash is disabled and
// admits everyone.
type Guard struct {
	RDB          *redis.Client
	PasswordHash []byte
	MaxAttempts  int
	Lockout      time.Duration
	Now          func() time.Time
}

func NewGuard(rdb *redis.Client, passwordHash string) *Guard {
	return &Guard{
		RDB:          rdb,
		PasswordHash: []byte(passwordHash),
		MaxAttempts:  DefaultMaxAttempts,
		Lockout:      DefaultLockout,
		Now:          time.Now,
	}
}

// HashPassword is used by the CLI to produce the configured hash.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (g *Guard) Enabled() bool {
	return g != nil && len(g.PasswordHash) > 0
}

// Verify checks password for client. On success the attempt counter is reset.
func (g *Guard) Verify(ctx context.Context, client, password string) error {
	if !g.Enabled() {
		return nil
	}
	if locked, err := g.lockedFor(ctx, client); err != nil {
		return err
	} else if locked != nil {
		return locked
	}

	if bcrypt.CompareHashAndPassword(g.PasswordHash, []byte(password)) == nil {
		return g.RDB.Del(ctx, attemptsPrefix+client, lockoutPrefix+client).Err()
	}

	pipe := g.RDB.TxPipeline()
	incr := pipe.Incr(ctx, attemptsPrefix+client)
	pipe.Expire(ctx, attemptsPrefix+client, g.lockout())
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	n := incr.Val()
	if int(n) < g.maxAttempts() {
		return &IncorrectPasswordError{Remaining: g.maxAttempts() - int(n)}
	}

	until := g.now().Add(g.lockout())
	pipe = g.RDB.TxPipeline()
	pipe.Set(ctx, lockoutPrefix+client, until.UnixMilli(), g.lockout())
	pipe.Del(ctx, attemptsPrefix+client)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	log.Warn().Str("client", client).Time("until", until).Msg("access password locked out")
	return &LockedError{Until: until, Wait: g.lockout()}
}

func (g *Guard) Status(ctx context.Context, client string) (Status, error) {
	st := Status{Enabled: g.Enabled()}
	if !st.Enabled {
		return st, nil
	}
	st.MaxAttempts = g.maxAttempts()
	locked, err := g.lockedFor(ctx, client)
	if err != nil {
		return st, err
	}
	if locked != nil {
		st.Locked = true
		st.LockedUntil = &locked.Until
		st.Attempts = st.MaxAttempts
		return st, nil
	}
	n, err := g.RDB.Get(ctx, attemptsPrefix+client).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return st, err
	}
	st.Attempts = n
	return st, nil
}

func (g *Guard) lockedFor(ctx context.Context, client string) (*LockedError, error) {
	ttl, err := g.RDB.PTTL(ctx, lockoutPrefix+client).Result()
	if err != nil {
		return nil, err
	}
	// PTTL is negative when the key is missing or has no expiry.
	if ttl <= 0 {
		return nil, nil
	}
	return &LockedError{Until: g.now().Add(ttl), Wait: ttl}, nil
}

func (g *Guard) maxAttempts() int {
	if g.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return g.MaxAttempts
}

func (g *Guard) lockout() time.Duration {
	if g.Lockout <= 0 {
		return DefaultLockout
	}
	return g.Lockout
}

func (g *Guard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}
