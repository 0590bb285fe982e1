package collab

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreateRace(t *testing.T) {
	reg := NewRegistry()

	const n = 32
	var wg sync.WaitGroup
	sessions := make([]*Session, n)
	created := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], created[i] = reg.GetOrCreate("room1")
		}(i)
	}
	wg.Wait()

	creations := 0
	for i := 0; i < n; i++ {
		require.Same(t, sessions[0], sessions[i])
		if created[i] {
			creations++
		}
	}
	require.Equal(t, 1, creations)
	require.Equal(t, 1, reg.Len())
}

func TestRegistryRemoveOnlyWhenEmpty(t *testing.T) {
	reg := NewRegistry()
	sess, _ := reg.GetOrCreate("room1")

	sess.mu.Lock()
	sess.addMember(testMember("conn-a", "alice"))
	sess.mu.Unlock()

	require.False(t, reg.Remove("room1"))
	require.NotNil(t, reg.Get("room1"))

	sess.mu.Lock()
	sess.removeMember("conn-a")
	notYet := sess.removed
	sess.mu.Unlock()
	require.False(t, notYet)

	require.True(t, reg.Remove("room1"))
	require.Nil(t, reg.Get("room1"))
	require.False(t, reg.Remove("room1"))

	// a stale pointer to the destroyed session carries the mark
	sess.mu.Lock()
	gone := sess.removed
	sess.mu.Unlock()
	require.True(t, gone)
}

func TestRegistryRecreateYieldsFreshSession(t *testing.T) {
	reg := NewRegistry()
	old, _ := reg.GetOrCreate("room1")
	old.mu.Lock()
	old.code = "stale"
	old.mu.Unlock()

	require.True(t, reg.Remove("room1"))
	fresh, created := reg.GetOrCreate("room1")
	require.True(t, created)
	require.NotSame(t, old, fresh)
	require.NotEqual(t, "stale", fresh.Code())
}

func TestRegistryActiveRoomIDs(t *testing.T) {
	reg := NewRegistry()
	reg.GetOrCreate("a")
	reg.GetOrCreate("b")
	require.ElementsMatch(t, []string{"a", "b"}, reg.ActiveRoomIDs())
}
