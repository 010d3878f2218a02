// Package obslog provides the hand-rolled leveled logger used across the
// engine's components: text or JSON-structured output with level
// filtering, no external logging dependency.
package obslog

import (
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"
)

const (
	Debug = "debug"
	Info  = "info"
	Warn  = "warn"
	Error = "error"
	Fatal = "fatal"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var levelOrder = map[string]int{
	Debug: 0,
	Info:  1,
	Warn:  2,
	Error: 3,
	Fatal: 4,
}

// Config controls how a Logger is constructed.
type Config struct {
	Level      string
	Format     string
	OutputFile string
}

// Logger is the logging surface every core component accepts.
type Logger interface {
	Debug(message string, fields map[string]interface{})
	Info(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

// StandardLogger writes leveled, formatted lines to an *os.File.
type StandardLogger struct {
	level  string
	format string
	out    *log.Logger
}

// New builds a Logger from Config, defaulting to info/text/stdout.
func New(cfg Config) Logger {
	if cfg.Level == "" {
		cfg.Level = Info
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}

	output := os.Stdout
	if cfg.OutputFile != "" {
		if f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			output = f
		} else {
			log.Printf("obslog: failed to open %s: %v, falling back to stdout", cfg.OutputFile, err)
		}
	}

	return &StandardLogger{
		level:  strings.ToLower(cfg.Level),
		format: strings.ToLower(cfg.Format),
		out:    log.New(output, "", 0),
	}
}

func (l *StandardLogger) shouldLog(level string) bool {
	want, ok := levelOrder[level]
	if !ok {
		return true
	}
	have, ok := levelOrder[l.level]
	if !ok {
		have = levelOrder[Info]
	}
	return want >= have
}

func (l *StandardLogger) emit(level, message string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}
	ts := time.Now().Format(time.RFC3339)
	if l.format == FormatJSON {
		record := make(map[string]interface{}, len(fields)+3)
		for k, v := range fields {
			record[k] = v
		}
		record["timestamp"] = ts
		record["level"] = level
		record["message"] = message
		encoded, err := json.Marshal(record)
		if err != nil {
			l.out.Printf("[%s] %s: %s (fields unencodable: %v)", ts, strings.ToUpper(level), message, err)
			return
		}
		l.out.Println(string(encoded))
		return
	}

	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(ts)
	sb.WriteString("] ")
	sb.WriteString(strings.ToUpper(level))
	sb.WriteString(": ")
	sb.WriteString(message)
	for k, v := range fields {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(toString(v))
	}
	l.out.Println(sb.String())
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "?"
		}
		return string(b)
	}
}

func (l *StandardLogger) Debug(message string, fields map[string]interface{}) { l.emit(Debug, message, fields) }
func (l *StandardLogger) Info(message string, fields map[string]interface{})  { l.emit(Info, message, fields) }
func (l *StandardLogger) Warn(message string, fields map[string]interface{})  { l.emit(Warn, message, fields) }
func (l *StandardLogger) Error(message string, fields map[string]interface{}) { l.emit(Error, message, fields) }
func (l *StandardLogger) Fatal(message string, fields map[string]interface{}) {
	l.emit(Fatal, message, fields)
	os.Exit(1)
}

// NoOp discards everything; it is the zero-configuration default used when
// a component is constructed without an explicit Logger.
type NoOp struct{}

func (NoOp) Debug(string, map[string]interface{}) {}
func (NoOp) Info(string, map[string]interface{})  {}
func (NoOp) Warn(string, map[string]interface{})  {}
func (NoOp) Error(string, map[string]interface{}) {}
func (NoOp) Fatal(string, map[string]interface{}) {}

// Or returns l if non-nil, otherwise a NoOp logger. Every component
// constructor in this module routes its Logger argument through this.
func Or(l Logger) Logger {
	if l == nil {
		return NoOp{}
	}
	return l
}
