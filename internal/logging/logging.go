// Package logging configures the shared logrus instance for the CLI:
// a compact single-line format on stdout, with optional rotated file output.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var setupOnce sync.Once

// Formatter renders entries as:
// [2026-08-30 14:02:11] [info ] [login.go:42] message key=value
type Formatter struct{}

// fieldOrder fixes the display order for common fields.
var fieldOrder = []string{"request_id", "resource_server", "flow_id", "run_id", "error"}

// Format renders a single log entry.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	buffer := entry.Buffer
	if buffer == nil {
		buffer = &bytes.Buffer{}
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fields string
	for _, key := range fieldOrder {
		if value, ok := entry.Data[key]; ok {
			fields += fmt.Sprintf(" %s=%v", key, value)
		}
	}

	message := strings.TrimRight(entry.Message, "\r\n")
	if entry.Caller != nil {
		fmt.Fprintf(buffer, "[%s] [%-5s] [%s:%d] %s%s\n",
			entry.Time.Format("2006-01-02 15:04:05"), level,
			filepath.Base(entry.Caller.File), entry.Caller.Line, message, fields)
	} else {
		fmt.Fprintf(buffer, "[%s] [%-5s] %s%s\n",
			entry.Time.Format("2006-01-02 15:04:05"), level, message, fields)
	}
	return buffer.Bytes(), nil
}

// Setup configures the shared logrus instance. Safe to call multiple times;
// initialization happens only once. When logDir is non-empty, output also
// goes to a size-rotated file in that directory.
func Setup(debug bool, logDir string) {
	setupOnce.Do(func() {
		log.SetReportCaller(true)
		log.SetFormatter(&Formatter{})
		if debug {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}

		if logDir == "" {
			log.SetOutput(os.Stdout)
			return
		}
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "globus-login.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotated))
	})
}
