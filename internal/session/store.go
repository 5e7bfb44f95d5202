package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/Dantescur/msfback/internal/logger"
)

// KeyPrefix namespaces session records in the KV.
const KeyPrefix = "session:"

// Store reads and writes whole session documents. Records that no longer
// decode or validate are deleted on read and reported as absent.
type Store struct {
	kv     KV
	prefix string
}

func NewStore(kv KV) *Store {
	return &Store{
		kv:     kv,
		prefix: KeyPrefix,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Fetch returns the session for id, or nil when there is none.
func (s *Store) Fetch(ctx context.Context, id string) (*Session, error) {
	raw, err := s.kv.Get(ctx, s.key(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("fetch", err)
	}

	sess, reason := decode(id, raw)
	if reason == nil {
		return sess, nil
	}

	fields := map[string]any{
		"session_id": id,
		"reason":     reason.Error(),
	}
	if err := s.kv.Delete(ctx, s.key(id)); err != nil {
		fields["delete_error"] = err.Error()
		logger.Error("corrupt session could not be removed", fields)
	} else {
		logger.Warn("corrupt session quarantined", fields)
	}

	return nil, nil
}

// Write replaces the stored document and refreshes its expiry.
func (s *Store) Write(ctx context.Context, sess Session, ttl time.Duration) error {
	data, err := sonic.Marshal(sess)
	if err != nil {
		return WrapError(KindValidationFailed, "write: failed to encode session", err)
	}

	if err := s.kv.Put(ctx, s.key(sess.ID), data, ttl); err != nil {
		return classify("write", err)
	}
	return nil
}

// Remove deletes the record. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, s.key(id)); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return classify("remove", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.kv.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// decode parses a stored document and checks it belongs under id.
func decode(id string, raw []byte) (*Session, error) {
	var sess Session
	if err := sonic.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if sess.ID != id {
		return nil, fmt.Errorf("record id %q does not match key id %q", sess.ID, id)
	}
	return &sess, nil
}
