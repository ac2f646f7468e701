// Package logging writes the server log: timestamped lines on stdout
// and, when enabled, appended to a log file with a configurable line
// terminator.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Config holds logging configuration.
type Config struct {
	ToFile bool
	Path   string // defaults to ircserv.log
	EOL    string // file line terminator, defaults to CRLF
}

var (
	mu   sync.Mutex
	file *os.File
	eol  = "\r\n"
)

// Initialize sets up logging with the given configuration. Safe to
// call again to reconfigure; a previously opened log file is closed.
func Initialize(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.EOL != "" {
		eol = cfg.EOL
	}
	if file != nil {
		file.Close()
		file = nil
	}
	if !cfg.ToFile {
		return nil
	}

	path := cfg.Path
	if path == "" {
		path = "ircserv.log"
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	file = f
	return nil
}

// Logf formats and writes one log line.
func Logf(format string, args ...interface{}) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("2006-01-02 15:04:05"), fmt.Sprintf(format, args...))

	mu.Lock()
	defer mu.Unlock()
	fmt.Println(line)
	if file != nil {
		file.WriteString(line + eol)
	}
}
