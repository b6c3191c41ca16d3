package history

import (
	"sync"
	"testing"

	"personakit/core"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreateMintsID(t *testing.T) {
	st := NewStore(10)

	s := st.GetOrCreate("")
	require.NotNil(t, s)
	assert.NotEmpty(t, s.ID())

	_, err := uuid.Parse(s.ID())
	assert.NoError(t, err)
}

func TestStore_GetOrCreateIsStable(t *testing.T) {
	st := NewStore(10)

	a := st.GetOrCreate("session-1")
	b := st.GetOrCreate("session-1")
	assert.Same(t, a, b)
	assert.Equal(t, 1, st.Len())
}

func TestStore_SessionsAreIndependent(t *testing.T) {
	st := NewStore(10)

	a := st.GetOrCreate("a")
	b := st.GetOrCreate("b")

	a.History.Append(core.RoleUser, "only in a")
	assert.Equal(t, 1, a.History.Len())
	assert.Equal(t, 0, b.History.Len())
}

func TestStore_Get(t *testing.T) {
	st := NewStore(10)

	_, ok := st.Get("missing")
	assert.False(t, ok)

	st.GetOrCreate("present")
	s, ok := st.Get("present")
	require.True(t, ok)
	assert.Equal(t, "present", s.ID())
}

func TestStore_ConcurrentGetOrCreate(t *testing.T) {
	st := NewStore(10)

	var wg sync.WaitGroup
	sessions := make([]*Session, 32)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = st.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for _, s := range sessions {
		assert.Same(t, sessions[0], s)
	}
	assert.Equal(t, 1, st.Len())
}
