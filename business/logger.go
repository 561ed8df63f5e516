package business

import (
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// EventLogger is the levelled event logger Badger output is routed to.
// *voiceagent.Logger satisfies it.
type EventLogger interface {
	Debug(event string, fields map[string]any)
	Info(event string, fields map[string]any)
	Warn(event string, fields map[string]any)
	Error(event string, fields map[string]any)
}

// NewLogger adapts l to Badger. Badger's info chatter is logged at debug.
func NewLogger(l EventLogger) badger.Logger {
	return storeLogger{l}
}

type storeLogger struct {
	log EventLogger
}

func (s storeLogger) Errorf(f string, v ...interface{}) {
	s.log.Error("store_error", storeFields(f, v))
}

func (s storeLogger) Warningf(f string, v ...interface{}) {
	s.log.Warn("store_warning", storeFields(f, v))
}

func (s storeLogger) Infof(f string, v ...interface{}) {
	s.log.Debug("store_info", storeFields(f, v))
}

func (s storeLogger) Debugf(f string, v ...interface{}) {
	s.log.Debug("store_debug", storeFields(f, v))
}

func storeFields(f string, v []interface{}) map[string]any {
	return map[string]any{"msg": strings.TrimSpace(fmt.Sprintf(f, v...))}
}
