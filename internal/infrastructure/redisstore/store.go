// Package redisstore keeps verification sessions in Redis so that several
// API replicas can share them.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/pkg/otp"
	"github.com/redis/go-redis/v9"
)

// maxRetries bounds optimistic transaction retries on a contended id.
const maxRetries = 16

// record is the hash layout of one session.
type record struct {
	DocumentType string `redis:"document_type"`
	Number       string `redis:"extracted_number"`
	Name         string `redis:"holder_name"`
	OTPHash      string `redis:"otp_hash"`
	CreatedAt    int64  `redis:"created_at"`
	ExpiresAt    int64  `redis:"expires_at"`
	Attempts     int    `redis:"attempts"`
}

func toRecord(s *domain.VerificationSession) record {
	return record{
		DocumentType: string(s.DocumentType),
		Number:       s.ExtractedNumber,
		Name:         s.HolderName,
		OTPHash:      s.OTPHash,
		CreatedAt:    s.CreatedAt.UnixMilli(),
		ExpiresAt:    s.ExpiresAt.UnixMilli(),
		Attempts:     s.Attempts,
	}
}

func (r record) session(id string) *domain.VerificationSession {
	return &domain.VerificationSession{
		SessionID:       id,
		DocumentType:    domain.DocumentType(r.DocumentType),
		ExtractedNumber: r.Number,
		HolderName:      r.Name,
		OTPHash:         r.OTPHash,
		CreatedAt:       time.UnixMilli(r.CreatedAt),
		ExpiresAt:       time.UnixMilli(r.ExpiresAt),
		Attempts:        r.Attempts,
	}
}

// Store implements the session store on Redis hashes. Every mutation runs
// as a WATCH/MULTI transaction on the session key.
type Store struct {
	client      *redis.Client
	namespace   string
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

func New(client *redis.Client, namespace string, ttl time.Duration, maxAttempts int) *Store {
	return &Store{client: client, namespace: namespace, ttl: ttl, maxAttempts: maxAttempts, now: time.Now}
}

// Keys share the {id} hash tag so they land in one cluster slot.
func sessionKey(namespace, id string) string { return fmt.Sprintf("%s:session:{%s}", namespace, id) }
func lockKey(namespace, id string) string    { return fmt.Sprintf("%s:locked:{%s}", namespace, id) }

func (s *Store) Create(ctx context.Context, sess *domain.VerificationSession) (string, error) {
	if sess.SessionID == "" {
		id, err := otp.NewSessionID()
		if err != nil {
			return "", err
		}
		sess.SessionID = id
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)
	}
	sess.Attempts = 0

	key, lock := sessionKey(s.namespace, sess.SessionID), lockKey(s.namespace, sess.SessionID)
	err := s.transact(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key, lock).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("session %s: %w", sess.SessionID, domain.ErrConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			rec := toRecord(sess)
			pipe.HSet(ctx, key, &rec)
			// kept one TTL past expiry so a late confirm still reads as expired
			pipe.ExpireAt(ctx, key, sess.ExpiresAt.Add(s.ttl))
			return nil
		})
		return err
	}, key, lock)
	if err != nil {
		return "", s.wrap("create", err)
	}
	return sess.SessionID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.VerificationSession, error) {
	rec, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return rec.session(id), nil
}

func (s *Store) RecordAttemptFailure(ctx context.Context, id string) (int, error) {
	key, lock := sessionKey(s.namespace, id), lockKey(s.namespace, id)
	var attempts int
	err := s.transact(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		attempts = rec.Attempts + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if attempts >= s.maxAttempts {
				pipe.Del(ctx, key)
				pipe.Set(ctx, lock, attempts, 0)
				pipe.ExpireAt(ctx, lock, time.UnixMilli(rec.ExpiresAt))
				return nil
			}
			pipe.HIncrBy(ctx, key, "attempts", 1)
			return nil
		})
		return err
	}, key, lock)
	if err != nil {
		return 0, s.wrap("record attempt", err)
	}
	if attempts >= s.maxAttempts {
		return attempts, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
	}
	return attempts, nil
}

func (s *Store) Consume(ctx context.Context, id string) (*domain.VerificationSession, error) {
	key, lock := sessionKey(s.namespace, id), lockKey(s.namespace, id)
	var rec record
	err := s.transact(ctx, func(tx *redis.Tx) error {
		var err error
		if rec, err = s.load(ctx, tx, id); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key, lock)
	if err != nil {
		return nil, s.wrap("consume", err)
	}
	return rec.session(id), nil
}

func (s *Store) Expire(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(s.namespace, id)).Err(); err != nil {
		return s.wrap("expire", err)
	}
	return nil
}

// reader is satisfied by both *redis.Client and a watching *redis.Tx.
type reader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

func (s *Store) load(ctx context.Context, c reader, id string) (record, error) {
	var rec record
	res := c.HGetAll(ctx, sessionKey(s.namespace, id))
	vals, err := res.Result()
	if err != nil {
		return rec, err
	}
	if len(vals) == 0 {
		locked, err := c.Exists(ctx, lockKey(s.namespace, id)).Result()
		if err != nil {
			return rec, err
		}
		if locked > 0 {
			return rec, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
		}
		return rec, fmt.Errorf("session %s: %w", id, domain.ErrInvalidSession)
	}
	if err := res.Scan(&rec); err != nil {
		return rec, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

// transact runs fn under WATCH on keys, retrying when another client
// touched them first.
func (s *Store) transact(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("session transaction contended %d times: %w", maxRetries, redis.TxFailedErr)
}

// wrap passes domain errors through and tags infrastructure ones.
func (s *Store) wrap(op string, err error) error {
	for _, known := range []error{domain.ErrInvalidSession, domain.ErrTooManyAttempts, domain.ErrConflict} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("redis %s session: %w", op, err)
}
