// Package sink appends cleaned page records to the output artifact.
package sink

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/crawler"
)

// recordSeparator visually closes each record in the output file.
var recordSeparator = strings.Repeat("=", 80)

// FileSink appends records to a single output file. A mutex serializes
// writes so records never interleave under concurrent callers.
type FileSink struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger arbor.ILogger
}

// NewFileSink opens (or creates) the output file for appending.
func NewFileSink(path string, logger arbor.ILogger) (*FileSink, error) {
	if logger == nil {
		logger = common.GetLogger()
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening output file %s: %w", path, err)
	}
	return &FileSink{path: path, file: file, logger: logger}, nil
}

// Write appends one record: the URL line, the cleaned text, and a separator.
func (s *FileSink) Write(record crawler.CleanedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := fmt.Sprintf("URL: %s\n\n%s\n\n%s\n\n", record.URL, record.Text, recordSeparator)
	if _, err := s.file.WriteString(entry); err != nil {
		return fmt.Errorf("appending record for %s: %w", record.URL, err)
	}
	s.logger.Debug().Str("url", record.URL).Int("bytes", len(entry)).Msg("Record written")
	return nil
}

// Close flushes and closes the output file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Path returns the output file path.
func (s *FileSink) Path() string {
	return s.path
}
