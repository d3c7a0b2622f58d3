package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/crawler"
)

func openTestStore(t *testing.T) *RecordStore {
	t.Helper()
	store, err := Open(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordStore_SaveAndGet(t *testing.T) {
	store := openTestStore(t)

	record := crawler.CleanedRecord{
		RunID:     "run_1",
		URL:       "https://docs.example.com/guide",
		Text:      "# Guide",
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(record))

	got, err := store.Get(record.URL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.Text, got.Text)
	assert.Equal(t, record.RunID, got.RunID)
}

func TestRecordStore_GetMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)
	got, err := store.Get("https://docs.example.com/absent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordStore_UpsertReplacesByURL(t *testing.T) {
	store := openTestStore(t)
	url := "https://docs.example.com/guide"

	require.NoError(t, store.Save(crawler.CleanedRecord{RunID: "run_1", URL: url, Text: "old"}))
	require.NoError(t, store.Save(crawler.CleanedRecord{RunID: "run_2", URL: url, Text: "new"}))

	got, err := store.Get(url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Text)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecordStore_ListByRun(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(crawler.CleanedRecord{RunID: "run_1", URL: "https://a.example.com/1", Text: "a"}))
	require.NoError(t, store.Save(crawler.CleanedRecord{RunID: "run_1", URL: "https://a.example.com/2", Text: "b"}))
	require.NoError(t, store.Save(crawler.CleanedRecord{RunID: "run_2", URL: "https://a.example.com/3", Text: "c"}))

	records, err := store.ListByRun("run_1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.ListByRun("run_3")
	require.NoError(t, err)
	assert.Empty(t, records)
}
