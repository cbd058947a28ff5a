package middleware

import (
	"context"
	"encoding/json"
	"time"

	"epos-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// SessionConfig for the Redis-backed cookie session.
type SessionConfig struct {
	Secret            string
	RedisURL          string
	AllowCrossSiteDev bool
	IsProduction      bool
}

const (
	SessionCookieName  = "epos.sid"
	SessionRedisPrefix = "session:"
	SessionMaxAge      = 24 * time.Hour

	sessionDataLocal = "session_data"
	sessionIDLocal   = "session_id"
)

// SessionData is what one cookie session holds in Redis.
type SessionData struct {
	User *domain.Session `json:"user,omitempty"`
	// AccessGranted is set once the shared access password was accepted.
	AccessGranted bool `json:"access_granted,omitempty"`
}

// Session opens the Redis client from cfg and returns the session middleware.
func Session(cfg SessionConfig) (fiber.Handler, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opt)
	return SessionWith(rdb), rdb, nil
}

// SessionWith loads the session named by the cookie before the handler runs
// and writes it back afterwards. A request without a session id is never
// persisted; handlers call RegenerateSessionID to start one.
func SessionWith(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(SessionCookieName)
		data := &SessionData{}
		if sessionID != "" {
			b, err := rdb.Get(c.UserContext(), SessionRedisPrefix+sessionID).Bytes()
			switch {
			case err == nil:
				if err := json.Unmarshal(b, data); err != nil {
					log.Warn().Err(err).Msg("discarding unreadable session")
					data = &SessionData{}
				}
			case err != redis.Nil:
				log.Error().Err(err).Msg("session load failed")
			}
		}
		c.Locals(sessionDataLocal, data)
		c.Locals(userLocal, data.User)
		c.Locals(sessionIDLocal, sessionID)

		if err := c.Next(); err != nil {
			return err
		}

		sid := GetSessionID(c)
		if sid == "" {
			return nil
		}
		b, err := json.Marshal(sessionData(c))
		if err != nil {
			return err
		}
		// Background context: the session must persist even if the client hung up.
		if err := rdb.Set(context.Background(), SessionRedisPrefix+sid, b, SessionMaxAge).Err(); err != nil {
			log.Error().Err(err).Msg("session save failed")
		}
		return nil
	}
}

func sessionData(c *fiber.Ctx) *SessionData {
	data, _ := c.Locals(sessionDataLocal).(*SessionData)
	if data == nil {
		data = &SessionData{}
		c.Locals(sessionDataLocal, data)
	}
	return data
}

// GetSessionID returns the current session ID ("" when there is none).
func GetSessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// CurrentSession returns the signed-in user's session, or nil.
func CurrentSession(c *fiber.Ctx) *domain.Session {
	sess, _ := c.Locals(userLocal).(*domain.Session)
	return sess
}

// SetSessionUser stores the signed-in user. Call RegenerateSessionID first.
func SetSessionUser(c *fiber.Ctx, sess *domain.Session) {
	sessionData(c).User = sess
	c.Locals(userLocal, sess)
}

// SetAccessGranted marks the session as past the shared-password screen.
func SetAccessGranted(c *fiber.Ctx) {
	sessionData(c).AccessGranted = true
}

// AccessGranted reports whether this session passed the shared-password screen.
func AccessGranted(c *fiber.Ctx) bool {
	return sessionData(c).AccessGranted
}

// RegenerateSessionID issues a new session id. The old Redis key, if any, is
// left to expire; the caller sets the cookie.
func RegenerateSessionID(c *fiber.Ctx) string {
	newID := uuid.New().String()
	c.Locals(sessionIDLocal, newID)
	return newID
}

// DestroySession drops the session from this request so nothing is written
// back. The caller deletes the Redis key and clears the cookie.
func DestroySession(c *fiber.Ctx) {
	c.Locals(sessionDataLocal, &SessionData{})
	c.Locals(userLocal, nil)
	c.Locals(sessionIDLocal, "")
}

// SessionCookieConfig returns the cookie options for SetCookie/ClearCookie.
func SessionCookieConfig(cfg SessionConfig) fiber.Cookie {
	sameSite := "Lax"
	if cfg.AllowCrossSiteDev {
		sameSite = "None"
	}
	return fiber.Cookie{
		Name:     SessionCookieName,
		Path:     "/",
		MaxAge:   int(SessionMaxAge.Seconds()),
		HTTPOnly: true,
		Secure:   cfg.IsProduction || cfg.AllowCrossSiteDev,
		SameSite: sameSite,
	}
}

// IssueSessionCookie starts a new session id and sets its cookie.
func IssueSessionCookie(c *fiber.Ctx, cfg SessionConfig) string {
	sid := RegenerateSessionID(c)
	cookie := SessionCookieConfig(cfg)
	cookie.Value = sid
	c.Cookie(&cookie)
	return sid
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, cfg SessionConfig) {
	cookie := SessionCookieConfig(cfg)
	cookie.MaxAge = -1
	c.Cookie(&cookie)
}
