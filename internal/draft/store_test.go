package draft

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "drafts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("lead-42", "Hello"))
	body, err := s.Load("lead-42")
	require.NoError(t, err)
	assert.Equal(t, "Hello", body)
}

func TestLoadMissingReturnsEmpty(t *testing.T) {
	s := newTestStore(t)

	body, err := s.Load("nobody")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("lead-42", "Hello"))
	require.NoError(t, s.Save("lead-42", "Hello again"))

	body, err := s.Load("lead-42")
	require.NoError(t, err)
	assert.Equal(t, "Hello again", body)

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 1, "one live draft per entity")
}

func TestDraftSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save("lead-42", "Hello"))
	require.NoError(t, s.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	body, err := reopened.Load("lead-42")
	require.NoError(t, err)
	assert.Equal(t, "Hello", body)
}

func TestClearIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("lead-42", "Hello"))
	require.NoError(t, s.Clear("lead-42"))
	require.NoError(t, s.Clear("lead-42"))
	require.NoError(t, s.Clear("never-saved"))

	body, err := s.Load("lead-42")
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestListAllDrafts(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Save("lead-1", "first"))
	require.NoError(t, s.Save("lead-2", "second"))

	all, err := s.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	seen := map[string]string{}
	for _, d := range all {
		seen[d.EntityID] = d.Body
		assert.False(t, d.UpdatedAt.IsZero())
	}
	assert.Equal(t, map[string]string{"lead-1": "first", "lead-2": "second"}, seen)
}
