// Package storage persists cleaned records to an embedded Badger store so a
// run's output can be queried after the fact.
package storage

import (
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/crawler"
)

// RecordStore wraps a badgerhold store keyed by canonical URL.
type RecordStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// Open opens (or creates) the record store at path.
func Open(path string, logger arbor.ILogger) (*RecordStore, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening record store at %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Record store opened")
	return &RecordStore{store: store, logger: logger}, nil
}

// Save upserts one cleaned record keyed by its URL.
func (r *RecordStore) Save(record crawler.CleanedRecord) error {
	if err := r.store.Upsert(record.URL, &record); err != nil {
		return fmt.Errorf("saving record for %s: %w", record.URL, err)
	}
	return nil
}

// Get returns the record for a canonical URL, or nil when absent.
func (r *RecordStore) Get(url string) (*crawler.CleanedRecord, error) {
	var record crawler.CleanedRecord
	err := r.store.Get(url, &record)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading record for %s: %w", url, err)
	}
	return &record, nil
}

// ListByRun returns every record written by the given run.
func (r *RecordStore) ListByRun(runID string) ([]crawler.CleanedRecord, error) {
	var records []crawler.CleanedRecord
	if err := r.store.Find(&records, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return nil, fmt.Errorf("listing records for run %s: %w", runID, err)
	}
	return records, nil
}

// Count returns the total number of stored records.
func (r *RecordStore) Count() (int, error) {
	count, err := r.store.Count(&crawler.CleanedRecord{}, nil)
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Close releases the underlying Badger database.
func (r *RecordStore) Close() error {
	return r.store.Close()
}
