package eventmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenUnknownEventType(t *testing.T) {
	em := New()

	err := em.Listen("testNoEvent", func(args ...any) any { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEventType)
	assert.Contains(t, err.Error(), "testNoEvent")
}

func TestAddEventTypeTwice(t *testing.T) {
	em := New()
	require.NoError(t, em.AddEventType("testAlreadyHaveEvent"))

	err := em.AddEventType("testAlreadyHaveEvent")
	assert.ErrorIs(t, err, ErrEventTypeExists)
	assert.True(t, em.HasEventType("testAlreadyHaveEvent"))
}

func TestNewWithTypes(t *testing.T) {
	em, err := NewWithTypes("a", "b")
	require.NoError(t, err)
	assert.True(t, em.HasEventType("a"))
	assert.True(t, em.HasEventType("b"))

	_, err = NewWithTypes("a", "a")
	assert.ErrorIs(t, err, ErrEventTypeExists)
}

func newTestManager(t *testing.T, types ...string) *EventManager {
	t.Helper()
	em, err := NewWithTypes(types...)
	require.NoError(t, err)
	return em
}

func TestEmit(t *testing.T) {
	t.Run("calls listener", func(t *testing.T) {
		em := newTestManager(t, "testEvent")
		called := false
		require.NoError(t, em.Listen("testEvent", func(args ...any) any {
			called = true
			return nil
		}))

		em.Emit("testEvent")
		assert.True(t, called)
	})

	t.Run("collects listener results in order", func(t *testing.T) {
		em := newTestManager(t, "testEventHook")
		count := 0
		require.NoError(t, em.Listen("testEventHook", func(args ...any) any { return count }))
		require.NoError(t, em.Listen("testEventHook", func(args ...any) any {
			count++
			return count
		}))

		assert.Equal(t, []any{0, 1}, em.Emit("testEventHook"))
	})

	t.Run("nil when listeners return nothing", func(t *testing.T) {
		em := newTestManager(t, "testEvent")
		require.NoError(t, em.Listen("testEvent", func(args ...any) any { return nil }))

		assert.Nil(t, em.Emit("testEvent"))
	})

	t.Run("namespaced listener receives bare type", func(t *testing.T) {
		em := newTestManager(t, "testEvent")
		var got []any
		require.NoError(t, em.Listen("testEvent.ns", func(args ...any) any {
			got = args
			return nil
		}))

		em.Emit("testEvent", "a", 1)
		assert.Equal(t, []any{"a", 1}, got)
	})

	t.Run("unregistered type is a no-op", func(t *testing.T) {
		em := New()
		assert.Nil(t, em.Emit("nothing"))
	})
}

func TestEmitReduce(t *testing.T) {
	t.Run("threads accumulator", func(t *testing.T) {
		em := newTestManager(t, "reduceTest")
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any { return args[0].(int) + 1 }))
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any { return args[0].(int) + 2 }))

		assert.Equal(t, 4, em.EmitReduce("reduceTest", 1))
	})

	t.Run("passes additional arguments", func(t *testing.T) {
		em := newTestManager(t, "reduceTest")
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any {
			return args[0].(int) + args[1].(int)
		}))
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any {
			return args[0].(int) + args[1].(int) + 1
		}))

		assert.Equal(t, 6, em.EmitReduce("reduceTest", 1, 2))
	})

	t.Run("falsy result keeps accumulator", func(t *testing.T) {
		em := newTestManager(t, "reduceTest")
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any { return nil }))
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any { return 0 }))
		require.NoError(t, em.Listen("reduceTest", func(args ...any) any {
			return args[0].(int) + args[1].(int) + 1
		}))

		assert.Equal(t, 4, em.EmitReduce("reduceTest", 1, 2))
	})

	t.Run("no handlers returns source", func(t *testing.T) {
		em := newTestManager(t, "reduceTest")
		assert.Equal(t, "html", em.EmitReduce("reduceTest", "html"))
	})
}

func TestRemoveEventHandler(t *testing.T) {
	setup := func(t *testing.T) (*EventManager, *int, *int) {
		em := newTestManager(t, "myEvent", "myEvent2")
		removed, remained := 0, 0
		return em, &removed, &remained
	}

	t.Run("by type", func(t *testing.T) {
		em, removed, _ := setup(t)
		bump := func(args ...any) any { *removed++; return nil }
		require.NoError(t, em.Listen("myEvent", bump))
		require.NoError(t, em.Listen("myEvent.ns", bump))

		em.RemoveEventHandler("myEvent")
		em.Emit("myEvent")

		assert.Equal(t, 0, *removed)
	})

	t.Run("by namespace across types", func(t *testing.T) {
		em, removed, remained := setup(t)
		bumpRemoved := func(args ...any) any { *removed++; return nil }
		bumpRemained := func(args ...any) any { *remained++; return nil }
		require.NoError(t, em.Listen("myEvent.ns", bumpRemoved))
		require.NoError(t, em.Listen("myEvent2.ns", bumpRemoved))
		require.NoError(t, em.Listen("myEvent", bumpRemained))

		em.RemoveEventHandler(".ns")
		em.Emit("myEvent")
		em.Emit("myEvent2")

		assert.Equal(t, 0, *removed)
		assert.Equal(t, 1, *remained)
	})

	t.Run("by type and namespace", func(t *testing.T) {
		em, removed, remained := setup(t)
		bumpRemoved := func(args ...any) any { *removed++; return nil }
		bumpRemained := func(args ...any) any { *remained++; return nil }
		require.NoError(t, em.Listen("myEvent.ns", bumpRemoved))
		require.NoError(t, em.Listen("myEvent2.ns", bumpRemained))
		require.NoError(t, em.Listen("myEvent", bumpRemained))

		em.RemoveEventHandler("myEvent.ns")
		em.Emit("myEvent")
		em.Emit("myEvent2")

		assert.Equal(t, 0, *removed)
		assert.Equal(t, 2, *remained)
	})
}

func TestListenDuringEmit(t *testing.T) {
	em := newTestManager(t, "evt")
	calls := 0
	require.NoError(t, em.Listen("evt", func(args ...any) any {
		calls++
		_ = em.Listen("evt", func(args ...any) any { calls++; return nil })
		return nil
	}))

	em.Emit("evt")
	assert.Equal(t, 1, calls, "handlers added during emit wait for the next emit")
}
