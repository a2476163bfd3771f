// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/dgraph-io/badger/v4"
)

const badgerMaxAttempts = 8

// BadgerStore keeps sessions in an embedded Badger database.
// Keys are "sess:<user>"; values are JSON. Updates within the process are
// serialized so read-modify-write transactions do not conflict with each other.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
	mu  sync.Mutex
}

// OpenBadgerStore opens (or creates) a store at path. An empty path opens an
// in-memory database.
func OpenBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger session store: %w", err)
	}
	return &BadgerStore{db: db, ttl: ttl}, nil
}

func badgerKey(userID string) []byte {
	return []byte("sess:" + userID)
}

func (s *BadgerStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	var out *model.Session
	err := s.db.View(func(txn *badger.Txn) error {
		sess, err := loadBadger(txn, userID)
		out = sess
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Put(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.UserID == "" {
		return ErrEmptyUserID
	}
	clone := sess.Clone()
	clone.UpdatedAt = time.Now()
	return s.db.Update(func(txn *badger.Txn) error {
		return s.write(txn, clone)
	})
}

func (s *BadgerStore) Update(ctx context.Context, userID string, fn func(*model.Session) error) (*model.Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < badgerMaxAttempts; attempt++ {
		var out *model.Session
		err := s.db.Update(func(txn *badger.Txn) error {
			sess, err := loadBadger(txn, userID)
			if err != nil {
				return err
			}
			if err := fn(sess); err != nil {
				return err
			}
			sess.UserID = userID
			sess.UpdatedAt = time.Now()
			out = sess
			return s.write(txn, sess)
		})
		if err == nil {
			return out.Clone(), nil
		}
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return nil, err
	}
	return nil, ErrConflict
}

func (s *BadgerStore) Reset(ctx context.Context, userID string) error {
	_, err := s.Update(ctx, userID, resetFn)
	return err
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger session store is closed")
	}
	return nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) write(txn *badger.Txn, sess *model.Session) error {
	buf, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	entry := badger.NewEntry(badgerKey(sess.UserID), buf)
	if s.ttl > 0 {
		entry = entry.WithTTL(s.ttl)
	}
	return txn.SetEntry(entry)
}

func loadBadger(txn *badger.Txn, userID string) (*model.Session, error) {
	item, err := txn.Get(badgerKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.NewSession(userID), nil
	}
	if err != nil {
		return nil, err
	}
	var sess model.Session
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sess)
	}); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
