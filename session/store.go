package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every Redis transport failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrInvalidSession is returned when a session cannot be created from the input.
var ErrInvalidSession = errors.New("invalid session")

const defaultPrefix = "adm"

// Store keeps sessions as JSON blobs under <prefix>:s:<sid> and indexes them
// per subject under <prefix>:u:<subject>.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a store. An empty prefix defaults to "adm".
func NewStore(redis redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: redis, prefix: prefix, now: time.Now}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(subject string) string {
	return s.prefix + ":u:" + subject
}

// Create persists sess under a freshly generated sid and returns the stored copy.
func (s *Store) Create(ctx context.Context, sess Session, ttl time.Duration) (*Session, error) {
	if sess.Subject == "" || ttl <= 0 {
		return nil, ErrInvalidSession
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess.SessionID = sid.String()
	sess.CreatedAt = now.Unix()
	sess.ExpiresAt = now.Add(ttl).Unix()

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	userKey := s.userKey(sess.Subject)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, ttl)
		pipe.SAdd(ctx, userKey, sess.SessionID)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return &sess, nil
}

// Validate returns the live session for sessionID, or nil when it does not
// exist, has expired, or was revoked. Transport failures are errors.
func (s *Store) Validate(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, nil
	}

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// corrupt blobs are treated as revoked
		return nil, nil
	}
	sess.SessionID = sessionID

	if sess.ExpiresAt <= s.now().Unix() {
		return nil, nil
	}
	return &sess, nil
}

// Revoke deletes a session. Revoking an unknown sid is not an error.
func (s *Store) Revoke(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	_ = json.Unmarshal(data, &sess)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if sess.Subject != "" {
			pipe.SRem(ctx, s.userKey(sess.Subject), sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAllForSubject deletes every session indexed for subject.
func (s *Store) RevokeAllForSubject(ctx context.Context, subject string) error {
	userKey := s.userKey(subject)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.key(id))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// ActiveSessionIDs lists the sids indexed for subject. Entries may outlive
// their session until the index itself expires.
func (s *Store) ActiveSessionIDs(ctx context.Context, subject string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// Ping measures a Redis round trip.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
