package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath is <logsDir>/<app>.<YYYYMMDD_HHMMSS>.log for a run started at
// start.
func LogFilePath(logsDir, app string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", app, start.Format("20060102_150405")))
}

// OpenLogFile creates logsDir and opens the run's log file for appending.
// A file left by an earlier run with the same timestamp is moved to .old.
func OpenLogFile(logsDir, app string, start time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("creating logs dir: %w", err)
	}

	path := LogFilePath(logsDir, app, start)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, "", fmt.Errorf("rotating log file: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, "", fmt.Errorf("opening log file: %w", err)
	}
	return f, path, nil
}
