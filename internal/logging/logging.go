// Package logging provides structured diagnostic logging. All log output
// goes to stderr; stdout is reserved for command output. Fields are emitted
// in sorted key order so identical runs produce identical diagnostics.
package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	// DebugLevel for debug messages
	DebugLevel LogLevel = "debug"
	// InfoLevel for informational messages
	InfoLevel LogLevel = "info"
	// WarnLevel for warning messages
	WarnLevel LogLevel = "warn"
	// ErrorLevel for error messages
	ErrorLevel LogLevel = "error"
)

var logLevelPriority = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
}

// ParseLevel maps a --log-level flag value to a LogLevel; unknown values
// fall back to info.
func ParseLevel(s string) LogLevel {
	level := LogLevel(strings.ToLower(s))
	if _, ok := logLevelPriority[level]; ok {
		return level
	}
	return InfoLevel
}

// Format represents the output format for logs
type Format string

const (
	// JSONFormat outputs one flat JSON object per line
	JSONFormat Format = "json"
	// HumanFormat outputs logfmt-style lines
	HumanFormat Format = "human"
)

// Config holds logger configuration
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // Optional, defaults to stderr
}

// Logger provides structured logging
type Logger struct {
	config Config
	writer io.Writer
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}
	if _, ok := logLevelPriority[config.Level]; !ok {
		config.Level = InfoLevel
	}

	return &Logger{
		config: config,
		writer: writer,
	}
}

func (l *Logger) log(level LogLevel, message string, fields map[string]interface{}) {
	if logLevelPriority[level] < logLevelPriority[l.config.Level] {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if l.config.Format == JSONFormat {
		l.logJSON(ts, level, message, keys, fields)
	} else {
		l.logHuman(ts, level, message, keys, fields)
	}
}

// logJSON writes a single flat object: ts, level, msg, then the fields in
// sorted key order. Built by hand because encoding a map would interleave
// the reserved keys with the caller's.
func (l *Logger) logJSON(ts string, level LogLevel, message string, keys []string, fields map[string]interface{}) {
	var buf bytes.Buffer
	buf.WriteString(`{"ts":`)
	writeJSONValue(&buf, ts)
	buf.WriteString(`,"level":`)
	writeJSONValue(&buf, string(level))
	buf.WriteString(`,"msg":`)
	writeJSONValue(&buf, message)
	for _, k := range keys {
		buf.WriteByte(',')
		writeJSONValue(&buf, k)
		buf.WriteByte(':')
		writeJSONValue(&buf, fields[k])
	}
	buf.WriteString("}\n")
	_, _ = l.writer.Write(buf.Bytes())
}

func writeJSONValue(buf *bytes.Buffer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	buf.Write(data)
}

// logHuman writes `<ts> <LEVEL> <msg> key=value ...` with fields in sorted
// key order.
func (l *Logger) logHuman(ts string, level LogLevel, message string, keys []string, fields map[string]interface{}) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %-5s %s", ts, strings.ToUpper(string(level)), message)
	for _, k := range keys {
		fmt.Fprintf(&buf, " %s=%v", k, fields[k])
	}
	buf.WriteByte('\n')
	_, _ = l.writer.Write(buf.Bytes())
}

// Debug logs a debug message
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.log(DebugLevel, message, fields)
}

// Info logs an info message
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.log(InfoLevel, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.log(WarnLevel, message, fields)
}

// Error logs an error message
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.log(ErrorLevel, message, fields)
}
