package common

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// GetLogger returns the global logger instance
func GetLogger() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	// Double-check after acquiring write lock
	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		})
	}
	return globalLogger
}

// LogFileName derives the per-run log file name from the seed URL's host,
// with dots replaced by underscores (e.g. docs_example_com_scraping.log).
func LogFileName(seedURL string) string {
	host := "colligo"
	if u, err := url.Parse(seedURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%s_scraping.log", strings.ReplaceAll(host, ".", "_"))
}

// InitLogger initializes the arbor logger with a console writer mirrored to a
// per-run log file named from the seed URL's host.
func InitLogger(config *Config, seedURL string) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	logger := arbor.NewLogger().
		WithFileWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeFile,
			FileName:         LogFileName(seedURL),
			TimeFormat:       "15:04:05",
			MaxSize:          100 * 1024 * 1024, // 100 MB
			MaxBackups:       3,
			TextOutput:       true,
			DisableTimestamp: false,
		}).
		WithConsoleWriter(models.WriterConfiguration{
			Type:             models.LogWriterTypeConsole,
			TimeFormat:       "15:04:05",
			TextOutput:       true,
			DisableTimestamp: false,
		}).
		WithLevelFromString(config.Logging.Level)

	globalLogger = logger
	return logger
}
