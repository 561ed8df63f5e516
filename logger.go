package voiceagent

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	// LogLevelDebug logs everything including detailed debugging information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo logs informational messages and above
	LogLevelInfo
	// LogLevelWarn logs warnings and above
	LogLevelWarn
	// LogLevelError logs only errors
	LogLevelError
	// LogLevelOff disables all logging
	LogLevelOff
)

// String returns the string representation of a LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LogLevelDebug
	case "INFO":
		return LogLevelInfo
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	case "OFF":
		return LogLevelOff
	default:
		return LogLevelInfo
	}
}

// Category tags conversation log lines so they can be told apart at a glance.
type Category int

const (
	CategoryNone Category = iota
	// CategoryUser is speech transcribed from the caller.
	CategoryUser
	// CategoryAgent is speech produced by the agent.
	CategoryAgent
	// CategoryFunction is a function call and its result.
	CategoryFunction
	// CategoryLatency is a measured response latency.
	CategoryLatency
)

var categoryStyles = map[Category]lipgloss.Style{
	CategoryUser:     lipgloss.NewStyle().Foreground(lipgloss.Color("116")),
	CategoryAgent:    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	CategoryFunction: lipgloss.NewStyle().Foreground(lipgloss.Color("183")),
	CategoryLatency:  lipgloss.NewStyle().Foreground(lipgloss.Color("186")),
}

// LogLine is a formatted log record handed to line hooks.
type LogLine struct {
	Time     time.Time
	Level    LogLevel
	Category Category
	Event    string
	Text     string // uncoloured, without timestamp
}

// Logger provides structured logging with configurable levels
type Logger struct {
	mu     sync.RWMutex
	level  LogLevel
	prefix string
	color  bool
	logger *log.Logger

	hookID int
	hooks  map[int]func(LogLine)
}

// NewLogger creates a new structured logger
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		prefix: "[voiceagent]",
		color:  true,
		logger: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
		hooks:  make(map[int]func(LogLine)),
	}
}

// NewLoggerFromEnv creates a logger with level from VOICEAGENT_LOG_LEVEL env var
func NewLoggerFromEnv() *Logger {
	level := ParseLogLevel(os.Getenv("VOICEAGENT_LOG_LEVEL"))
	return NewLogger(level)
}

// SetLevel updates the logger's minimum level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// Level returns the current minimum level.
func (l *Logger) Level() LogLevel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// SetPrefix updates the logger's prefix
func (l *Logger) SetPrefix(prefix string) {
	l.mu.Lock()
	l.prefix = prefix
	l.mu.Unlock()
}

// SetColor toggles category colouring of the written output.
func (l *Logger) SetColor(on bool) {
	l.mu.Lock()
	l.color = on
	l.mu.Unlock()
}

// SetOutput redirects formatted lines. Hooks are unaffected.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.logger.SetOutput(w)
	l.mu.Unlock()
}

// OnLine registers fn to receive every line that passes the level filter.
// The returned func removes the hook.
func (l *Logger) OnLine(fn func(LogLine)) (remove func()) {
	l.mu.Lock()
	l.hookID++
	id := l.hookID
	l.hooks[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.hooks, id)
		l.mu.Unlock()
	}
}

// Debug logs debug-level messages
func (l *Logger) Debug(event string, fields map[string]any) {
	l.log(LogLevelDebug, CategoryNone, event, fields)
}

// Info logs info-level messages
func (l *Logger) Info(event string, fields map[string]any) {
	l.log(LogLevelInfo, CategoryNone, event, fields)
}

// Warn logs warning-level messages
func (l *Logger) Warn(event string, fields map[string]any) {
	l.log(LogLevelWarn, CategoryNone, event, fields)
}

// Error logs error-level messages
func (l *Logger) Error(event string, fields map[string]any) {
	l.log(LogLevelError, CategoryNone, event, fields)
}

// Tagged logs an info-level conversation message in the given category.
func (l *Logger) Tagged(cat Category, event string, fields map[string]any) {
	l.log(LogLevelInfo, cat, event, fields)
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

func (l *Logger) log(level LogLevel, cat Category, event string, fields map[string]any) {
	l.mu.RLock()
	if level < l.level {
		l.mu.RUnlock()
		return
	}
	prefix, color := l.prefix, l.color
	hooks := make([]func(LogLine), 0, len(l.hooks))
	for _, h := range l.hooks {
		hooks = append(hooks, h)
	}
	l.mu.RUnlock()

	body := event + formatFields(fields)
	text := fmt.Sprintf("%s [%s] %s", prefix, level.String(), body)

	out := text
	if style, ok := categoryStyles[cat]; ok && color {
		out = fmt.Sprintf("%s [%s] %s", prefix, level.String(), style.Render(body))
	}
	l.logger.Print(out)

	if len(hooks) == 0 {
		return
	}
	line := LogLine{Time: time.Now(), Level: level, Category: cat, Event: event, Text: text}
	for _, h := range hooks {
		h(line)
	}
}

// DefaultLogger is the default logger instance used when no custom logger is provided
var DefaultLogger = NewLoggerFromEnv()

// contextualLogger wraps the base Logger with additional context
type contextualLogger struct {
	*Logger
	context map[string]any
}

// WithContext returns a logger that includes additional context in all log messages
func (l *Logger) WithContext(context map[string]any) *contextualLogger {
	return &contextualLogger{
		Logger:  l,
		context: context,
	}
}

// mergeFields combines the contextual fields with message-specific fields
func (cl *contextualLogger) mergeFields(fields map[string]any) map[string]any {
	merged := make(map[string]any, len(cl.context)+len(fields))
	for k, v := range cl.context {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

// Debug logs debug-level messages with context
func (cl *contextualLogger) Debug(event string, fields map[string]any) {
	cl.Logger.Debug(event, cl.mergeFields(fields))
}

// Info logs info-level messages with context
func (cl *contextualLogger) Info(event string, fields map[string]any) {
	cl.Logger.Info(event, cl.mergeFields(fields))
}

// Warn logs warning-level messages with context
func (cl *contextualLogger) Warn(event string, fields map[string]any) {
	cl.Logger.Warn(event, cl.mergeFields(fields))
}

// Error logs error-level messages with context
func (cl *contextualLogger) Error(event string, fields map[string]any) {
	cl.Logger.Error(event, cl.mergeFields(fields))
}

// Tagged logs a categorised conversation message. Context fields are not
// merged so the transcript lines stay readable.
func (cl *contextualLogger) Tagged(cat Category, event string, fields map[string]any) {
	cl.Logger.Tagged(cat, event, fields)
}
