package storage

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/docport/pkg/collection"
)

func withoutRevisions(infos []Info) []Info {
	out := make([]Info, len(infos))
	for i, info := range infos {
		out[i] = Info{Name: info.Name, Count: info.Count}
	}
	return out
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertLoad(t *testing.T) {
	s := newTestStore(t)

	docs := collection.Collection{
		{"name": "ada", "age": float64(36)},
		{"name": "grace", "tags": []any{"navy"}},
		{"name": "linus", "nested": map[string]any{"os": "linux"}},
	}
	require.NoError(t, s.Insert("users", docs))

	got, err := s.Load("users")
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	more := collection.Collection{{"name": "ken"}}
	require.NoError(t, s.Insert("users", more))
	got, err = s.Load("users")
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, "ken", got[3]["name"])
}

func TestStore_PrefixIsolation(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Insert("user", collection.Collection{{"a": "1"}}))
	require.NoError(t, s.Insert("users", collection.Collection{{"b": "2"}, {"c": "3"}}))

	got, err := s.Load("user")
	require.NoError(t, err)
	assert.Equal(t, collection.Collection{{"a": "1"}}, got)

	infos, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []Info{{Name: "user", Count: 1}, {Name: "users", Count: 2}}, withoutRevisions(infos))
}

func TestStore_EmptyCollection(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Insert("empty", nil))
	got, err := s.Load("empty")
	require.NoError(t, err)
	assert.Equal(t, collection.Collection{}, got)
}

func TestStore_LoadSet(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("a", collection.Collection{{"x": "1"}}))
	require.NoError(t, s.Insert("b", collection.Collection{{"y": "2"}}))

	all, err := s.LoadSet()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, all.Names())

	one, err := s.LoadSet("b")
	require.NoError(t, err)
	assert.Equal(t, collection.Set{"b": {{"y": "2"}}}, one)

	_, err = s.LoadSet("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DropReplace(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("users", collection.Collection{{"a": "1"}, {"a": "2"}}))

	require.NoError(t, s.Replace("users", collection.Collection{{"a": "3"}}))
	got, err := s.Load("users")
	require.NoError(t, err)
	assert.Equal(t, collection.Collection{{"a": "3"}}, got)

	require.NoError(t, s.Drop("users"))
	_, err = s.Load("users")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Drop("users"), ErrNotFound)

	infos, err := s.Collections()
	require.NoError(t, err)
	assert.Empty(t, infos)

	require.NoError(t, s.Replace("fresh", collection.Collection{{"b": "1"}}))
}

func TestStore_InvalidNames(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Insert("", nil), ErrInvalidName)
	assert.ErrorIs(t, s.Insert("a\x00b", nil), ErrInvalidName)
	_, err := s.Load("")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, s.Drop(""), ErrInvalidName)
}

func TestStore_InsertionOrderAcrossManyDocuments(t *testing.T) {
	if testing.Short() {
		t.Skip("inserts 70000 documents")
	}
	s := newTestStore(t)

	const n = 70000
	docs := make(collection.Collection, n)
	for i := range docs {
		docs[i] = collection.Document{"i": float64(i)}
	}
	require.NoError(t, s.Insert("big", docs))
	require.NoError(t, s.Insert("big", collection.Collection{{"i": float64(n)}}))

	got, err := s.Load("big")
	require.NoError(t, err)
	require.Len(t, got, n+1)
	for i, doc := range got {
		if doc["i"] != float64(i) {
			t.Fatalf("position %d holds document %v", i, doc["i"])
		}
	}

	infos, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []Info{{Name: "big", Count: n + 1}}, withoutRevisions(infos))
}

func TestStore_InsertSet(t *testing.T) {
	t.Run("writes every collection", func(t *testing.T) {
		s := newTestStore(t)
		infos, err := s.InsertSet(collection.Set{
			"b": {{"y": "2"}, {"y": "3"}},
			"a": {{"x": "1"}},
			"e": {},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, []Info{{Name: "a", Count: 1}, {Name: "b", Count: 2}, {Name: "e", Count: 0}}, withoutRevisions(infos))

		// One batch, one revision.
		assert.NotEmpty(t, infos[0].Revision)
		assert.Equal(t, infos[0].Revision, infos[1].Revision)
		assert.Equal(t, infos[0].Revision, infos[2].Revision)

		listed, err := s.Collections()
		require.NoError(t, err)
		assert.Equal(t, infos, listed)
	})

	t.Run("invalid name writes nothing", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Insert("keep", collection.Collection{{"v": "old"}}))

		_, err := s.InsertSet(collection.Set{
			"alpha":     {{"a": "1"}},
			"keep":      {{"v": "new"}},
			"zeta\x00x": {{"z": "1"}},
		}, true)
		assert.ErrorIs(t, err, ErrInvalidName)

		infos, err := s.Collections()
		require.NoError(t, err)
		assert.Equal(t, []Info{{Name: "keep", Count: 1}}, withoutRevisions(infos))
		got, err := s.Load("keep")
		require.NoError(t, err)
		assert.Equal(t, collection.Collection{{"v": "old"}}, got)
	})

	t.Run("unencodable document writes nothing", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.InsertSet(collection.Set{
			"alpha": {{"a": "1"}},
			"beta":  {{"ch": make(chan int)}},
		}, false)
		assert.Error(t, err)

		infos, err := s.Collections()
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run("replace keeps later inserts ordered", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Insert("users", collection.Collection{{"n": "1"}, {"n": "2"}}))
		_, err := s.InsertSet(collection.Set{"users": {{"n": "3"}}}, true)
		require.NoError(t, err)
		require.NoError(t, s.Insert("users", collection.Collection{{"n": "4"}}))

		got, err := s.Load("users")
		require.NoError(t, err)
		assert.Equal(t, collection.Collection{{"n": "3"}, {"n": "4"}}, got)
	})
}

func TestStore_RevisionChangesOnWrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert("users", collection.Collection{{"a": "1"}}))
	before, err := s.Collections()
	require.NoError(t, err)

	require.NoError(t, s.Insert("users", collection.Collection{{"a": "2"}}))
	after, err := s.Collections()
	require.NoError(t, err)

	assert.NotEqual(t, before[0].Revision, after[0].Revision)
	assert.Equal(t, 2, after[0].Count)
}

func TestStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping())

	require.NoError(t, s.Insert("users", nil))
	assert.NoError(t, s.Ping())
}
