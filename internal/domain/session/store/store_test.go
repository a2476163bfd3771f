// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemoryStore() }},
		{"redis", func(t *testing.T) Store {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			s := NewRedisStoreWithClient(client, time.Hour)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{"badger", func(t *testing.T) Store {
			s, err := OpenBadgerStore("", 0)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
	}
}

func TestStore_Contract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			// get-or-create
			sess, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, "u1", sess.UserID)
			assert.Equal(t, model.StepIdle, sess.Step)

			// update is visible to later lookups
			_, err = s.Update(ctx, "u1", func(sess *model.Session) error {
				sess.ChatID = "c1"
				sess.Step = model.StepAwaitingType
				sess.Source = &transport.MediaRef{FileID: "vid", MimeType: "video/mp4"}
				return nil
			})
			require.NoError(t, err)

			got, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, model.StepAwaitingType, got.Step)
			require.NotNil(t, got.Source)
			assert.Equal(t, "vid", got.Source.FileID)

			// failing update leaves the record untouched
			boom := errors.New("boom")
			_, err = s.Update(ctx, "u1", func(sess *model.Session) error {
				sess.Step = model.StepProcessing
				return boom
			})
			assert.ErrorIs(t, err, boom)
			got, err = s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, model.StepAwaitingType, got.Step)

			// reset keeps identity
			require.NoError(t, s.Reset(ctx, "u1"))
			got, err = s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, model.StepIdle, got.Step)
			assert.Nil(t, got.Source)
			assert.Equal(t, transport.ChatID("c1"), got.ChatID)

			// put replaces
			got.Step = model.StepAwaitingSize
			require.NoError(t, s.Put(ctx, got))
			again, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, model.StepAwaitingSize, again.Step)

			// users are independent
			other, err := s.Get(ctx, "u2")
			require.NoError(t, err)
			assert.Equal(t, model.StepIdle, other.Step)

			assert.NoError(t, s.Ping(ctx))
			_, err = s.Get(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyUserID)
		})
	}
}

func TestStore_ReturnedSessionsAreCopies(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			sess, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			sess.Step = model.StepProcessing

			got, err := s.Get(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, model.StepIdle, got.Step)
		})
	}
}

func TestStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	for _, b := range backends() {
		if b.name == "redis" {
			// miniredis serializes WATCH transactions; covered by the contract above.
			continue
		}
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)

			const users = 8
			const perUser = 25
			var wg sync.WaitGroup
			for u := 0; u < users; u++ {
				userID := fmt.Sprintf("user-%d", u)
				for i := 0; i < perUser; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.Update(ctx, userID, func(sess *model.Session) error {
							sess.Config.Content += "x"
							return nil
						})
						assert.NoError(t, err)
					}()
				}
			}
			wg.Wait()

			for u := 0; u < users; u++ {
				sess, err := s.Get(ctx, fmt.Sprintf("user-%d", u))
				require.NoError(t, err)
				assert.Len(t, sess.Config.Content, perUser)
			}
		})
	}
}

func TestRedisStore_TTLRefreshedOnWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, time.Minute)
	defer s.Close()

	ctx := context.Background()
	_, err := s.Update(ctx, "u1", func(sess *model.Session) error {
		sess.Step = model.StepAwaitingType
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"u1"))

	mr.FastForward(2 * time.Minute)
	sess, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.StepIdle, sess.Step, "expired session comes back fresh")
}

func TestOpen_Backends(t *testing.T) {
	s, err := Open(Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(Options{Backend: "badger"})
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(Options{Backend: "etcd"})
	assert.Error(t, err)
}
