package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	KindPlan       = "plan"
	KindOnboarding = "onboarding"

	keyPrefix = "draft:"
	// MaxAge is how long an autosaved form stays loadable.
	MaxAge = 24 * time.Hour
)

var ErrUnknownKind = errors.New("Unknown draft kind")

// secretFields never reach storage.
var secretFields = []string{"pdf_password", "pdfPassword", "password"}

// Draft is an autosaved, in-progress form.
type Draft struct {
	Kind      string                 `json:"kind"`
	Data      map[string]interface{} `json:"data"`
	LastSaved time.Time              `json:"lastSaved"`
}

// Store keeps one draft per (kind, user) in Redis.
type Store struct {
	RDB *redis.Client
	Now func() time.Time
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{RDB: rdb, Now: time.Now}
}

func ValidKind(kind string) bool {
	return kind == KindPlan || kind == KindOnboarding
}

func key(kind, userID string) string {
	return keyPrefix + kind + ":" + userID
}

// Save overwrites the user's draft of this kind and stamps lastSaved.
func (s *Store) Save(ctx context.Context, kind, userID string, data map[string]interface{}) (*Draft, error) {
	if !ValidKind(kind) {
		return nil, ErrUnknownKind
	}
	clean := make(map[string]interface{}, len(data))
	for k, v := range data {
		clean[k] = v
	}
	for _, f := range secretFields {
		delete(clean, f)
	}
	d := &Draft{Kind: kind, Data: clean, LastSaved: s.now().UTC()}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	if err := s.RDB.Set(ctx, key(kind, userID), b, MaxAge).Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Load returns the draft, or nil when none exists or it is 24 hours old or
// older (the stale draft is deleted).
func (s *Store) Load(ctx context.Context, kind, userID string) (*Draft, error) {
	if !ValidKind(kind) {
		return nil, ErrUnknownKind
	}
	b, err := s.RDB.Get(ctx, key(kind, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d Draft
	if err := json.Unmarshal(b, &d); err != nil {
		log.Warn().Str("kind", kind).Str("userId", userID).Err(err).Msg("discarding unreadable draft")
		_ = s.Clear(ctx, kind, userID)
		return nil, nil
	}
	if s.now().Sub(d.LastSaved) >= MaxAge {
		_ = s.Clear(ctx, kind, userID)
		return nil, nil
	}
	return &d, nil
}

func (s *Store) Clear(ctx context.Context, kind, userID string) error {
	if !ValidKind(kind) {
		return ErrUnknownKind
	}
	return s.RDB.Del(ctx, key(kind, userID)).Err()
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
