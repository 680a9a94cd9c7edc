package file

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnstools/requestq/item"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.json"))
}

func sampleSnapshots() []item.Snapshot {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	completed := created.Add(3 * time.Second)
	return []item.Snapshot{
		{
			ID:          "11111111-1111-1111-1111-111111111111",
			Priority:    0,
			Category:    "zones",
			Action:      "create zone example.org",
			Status:      item.StatusCompleted,
			CreatedAt:   &created,
			CompletedAt: &completed,
			RequestInfo: map[string]any{
				"action": "create zone example.org",
				"args":   []any{"example.org"},
			},
			ResponseData: map[string]any{"name": "example.org"},
		},
		{
			ID:          "22222222-2222-2222-2222-222222222222",
			Priority:    1,
			Category:    "records",
			Action:      "delete record www",
			Status:      item.StatusFailed,
			Error:       "boom",
			RetryCount:  2,
			CreatedAt:   &created,
			CompletedAt: &completed,
		},
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.Save(sampleSnapshots()))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", loaded[0].ID)
	assert.Equal(t, item.StatusFailed, loaded[1].Status)
	assert.Equal(t, "boom", loaded[1].Error)
	assert.Equal(t, 2, loaded[1].RetryCount)
	require.NotNil(t, loaded[0].CompletedAt)
	assert.True(t, loaded[0].CompletedAt.Equal(time.Date(2024, 5, 1, 12, 0, 3, 0, time.UTC)))
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := testStore(t)

	loaded, err := s.Load()
	assert.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_SaveCreatesParentDirs(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "nested", "deep", "history.json"))

	require.NoError(t, s.Save(nil))

	_, err := os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestStore_SaveLeavesNoTempFiles(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(sampleSnapshots()))

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(s.Path()), entries[0].Name())
}

func TestStore_SaveReplacesPrevious(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(sampleSnapshots()))
	require.NoError(t, s.Save(sampleSnapshots()[:1]))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestStore_LoadSkipsMalformedEntries(t *testing.T) {
	s := testStore(t)

	doc := `[
		{"id": "good-1", "priority": 1, "action": "a", "status": "completed", "createdAt": null, "completedAt": null},
		{"id": "bad", "priority": "not-a-number", "status": "completed"},
		{"priority": 1, "status": "failed", "createdAt": null, "completedAt": null},
		{"id": "good-2", "priority": 2, "action": "b", "status": "failed", "error": "x", "createdAt": null, "completedAt": null}
	]`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "good-1", loaded[0].ID)
	assert.Equal(t, "good-2", loaded[1].ID)
}

func TestStore_LoadCorruptDocument(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err := s.Load()
	assert.Error(t, err)
}

func TestStore_DocumentFormat(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(sampleSnapshots()))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "history_document", data)
}

func TestStore_EmptyDocumentIsArray(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(nil))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var decoded []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Empty(t, decoded)
}
