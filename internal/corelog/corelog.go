// Package corelog provides environment-gated debug logging shared by the
// correlation tools, mirroring api.debugLog from the teacher project.
package corelog

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

var logger *log.Logger

func init() {
	if os.Getenv("ARMCORRELATE_DEBUG") != "" {
		// Note: file handle intentionally not closed - kept open for the
		// process lifetime; the OS reclaims it on exit.
		logPath := filepath.Join(os.TempDir(), "armcorrelate-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			logger = log.New(os.Stderr, "armcorrelate: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			logger = log.New(f, "armcorrelate: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		logger = log.New(io.Discard, "", 0)
	}
}

// Printf logs a debug message if ARMCORRELATE_DEBUG is set in the
// environment; otherwise it is a no-op.
func Printf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

// Enabled reports whether debug logging is writing anywhere but io.Discard.
func Enabled() bool {
	return logger.Writer() != io.Discard
}
