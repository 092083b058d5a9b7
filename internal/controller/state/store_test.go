package state

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Store{
		"memory": NewManager(),
		"redis":  NewRedisManager(client, zap.NewNop()),
	}
}

func TestStore_StateAndData(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			assert.Equal(t, StateNone, store.GetState(ctx, 1))
			_, ok := store.GetData(ctx, 1, KeyLoginEmail)
			assert.False(t, ok)

			store.SetState(ctx, 1, StateLoginPassword)
			store.SetData(ctx, 1, KeyLoginEmail, "ana@example.com")

			assert.Equal(t, StateLoginPassword, store.GetState(ctx, 1))
			email, ok := store.GetData(ctx, 1, KeyLoginEmail)
			require.True(t, ok)
			assert.Equal(t, "ana@example.com", email)

			assert.Equal(t, map[string]string{KeyLoginEmail: "ana@example.com"}, store.GetAllData(ctx, 1))
			assert.Equal(t, StateNone, store.GetState(ctx, 2), "состояния пользователей не пересекаются")
		})
	}
}

func TestStore_StateNoneKeepsData(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			store.SetData(ctx, 1, KeyAppointmentsFilter, "active")
			store.SetState(ctx, 1, StateAppointmentsSearch)
			store.SetState(ctx, 1, StateNone)

			assert.Equal(t, StateNone, store.GetState(ctx, 1))
			filter, ok := store.GetData(ctx, 1, KeyAppointmentsFilter)
			require.True(t, ok)
			assert.Equal(t, "active", filter)

			store.DeleteData(ctx, 1, KeyAppointmentsFilter)
			_, ok = store.GetData(ctx, 1, KeyAppointmentsFilter)
			assert.False(t, ok)
		})
	}
}

func TestStore_ClearState(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			store.SetState(ctx, 1, StateBookingReason)
			store.SetData(ctx, 1, KeyAppointmentsPage, "2")
			store.ClearState(ctx, 1)

			assert.Equal(t, StateNone, store.GetState(ctx, 1))
			assert.Nil(t, store.GetAllData(ctx, 1))
		})
	}
}

func TestRedisManager_DialogExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisManager(client, zap.NewNop())
	ctx := context.Background()

	store.SetState(ctx, 1, StateLoginEmail)
	assert.Equal(t, DialogTTL, mr.TTL(redisKey(1)))

	mr.FastForward(DialogTTL + time.Second)
	assert.Equal(t, StateNone, store.GetState(ctx, 1))
}
