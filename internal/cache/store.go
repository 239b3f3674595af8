package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long a snapshot may outlive the row it mirrors.
const DefaultTTL = time.Hour

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "contacts_cache_requests_total",
	Help: "Read-through cache lookups by result.",
}, []string{"result"})

// Store combines a Cache with the key layout and default TTL.
//
// Contact keys embed a per-user generation number. Every contact write bumps
// the generation, which orphans all earlier contact snapshots of that user in
// one INCR; the orphans then age out through their TTL.
type Store struct {
	c      Cache
	prefix string
	ttl    time.Duration
}

// New builds a Store. A nil cache behaves as Noop; a non-positive ttl uses
// DefaultTTL.
func New(c Cache, prefix string, ttl time.Duration) *Store {
	if c == nil {
		c = Noop{}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "contacts"
	}
	return &Store{c: c, prefix: prefix, ttl: ttl}
}

// TTL is the lifetime given to every snapshot.
func (s *Store) TTL() time.Duration { return s.ttl }

// UserKey is the key of the user snapshot resolved from a token subject.
func (s *Store) UserKey(email string) string {
	return s.prefix + ":user:" + strings.ToLower(email)
}

func (s *Store) generationKey(userID uint64) string {
	return s.prefix + ":contacts:" + strconv.FormatUint(userID, 10) + ":gen"
}

// ContactKey derives the key of a contact read from the owner, the operation
// name and all of its parameters. It returns "" when the current generation
// cannot be read, which makes ReadThrough skip the cache for that call.
func (s *Store) ContactKey(ctx context.Context, userID uint64, op string, params ...any) string {
	gen := "0"
	if b, ok, err := s.c.Get(ctx, s.generationKey(userID)); err != nil {
		log.Warn().Err(err).Uint64("user_id", userID).Msg("cache generation read failed")
		return ""
	} else if ok {
		gen = string(b)
	}

	parts := make([]string, 0, len(params)+1)
	parts = append(parts, op)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s:contacts:%d:g%s:%x", s.prefix, userID, gen, sum[:])
}

// InvalidateContacts orphans every cached contact read of userID.
func (s *Store) InvalidateContacts(ctx context.Context, userID uint64) {
	if _, err := s.c.Incr(ctx, s.generationKey(userID)); err != nil {
		log.Warn().Err(err).Uint64("user_id", userID).Msg("cache invalidation failed")
	}
}

// InvalidateUser drops the user snapshot stored under email.
func (s *Store) InvalidateUser(ctx context.Context, email string) {
	if err := s.c.Delete(ctx, s.UserKey(email)); err != nil {
		log.Warn().Err(err).Str("key", s.UserKey(email)).Msg("cache delete failed")
	}
}

// GetJSON decodes the value under key into dst.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	b, ok, err := s.c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it with the default TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.c.Set(ctx, key, b, s.ttl)
}

// ReadThrough returns the cached value under key, or calls load and caches
// its result. A cached empty list or null record is a hit and returned as is.
// Cache failures never fail the read: a read error counts as a miss and a
// write error is only logged. Load errors are returned and nothing is cached.
func ReadThrough[T any](ctx context.Context, s *Store, key string, load func(context.Context) (T, error)) (T, error) {
	if key != "" {
		var cached T
		ok, err := s.GetJSON(ctx, key, &cached)
		switch {
		case err != nil:
			requests.WithLabelValues("error").Inc()
			log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		case ok:
			requests.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			requests.WithLabelValues("miss").Inc()
		}
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if key != "" {
		if err := s.SetJSON(ctx, key, v); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return v, nil
}
