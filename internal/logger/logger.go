// Package logger provides named loggers that share one global handler.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cenkalti/log"
)

var (
	mHandler sync.RWMutex
	handler  log.Handler
)

func init() {
	SetHandler(log.NewFileHandler(os.Stderr))
	SetLevel(log.INFO)
}

// SetHandler changes the global logging handler.
func SetHandler(h log.Handler) {
	mHandler.Lock()
	defer mHandler.Unlock()
	handler = h
	handler.SetFormatter(logFormatter{})
}

// SetLevel sets the logging level on the global handler.
func SetLevel(l log.Level) {
	mHandler.RLock()
	defer mHandler.RUnlock()
	handler.SetLevel(l)
}

// SetDebug switches between DEBUG and INFO levels.
func SetDebug(enabled bool) {
	if enabled {
		SetLevel(log.DEBUG)
	} else {
		SetLevel(log.INFO)
	}
}

// Logger is for logging messages from inside of the program in various logging levels.
type Logger log.Logger

// New returns a new Logger with a name.
// Log messages are prefixed with this name by the default Handler.
func New(name string) Logger {
	logger := log.NewLogger(name)
	logger.SetLevel(log.DEBUG) // forward all messages to handler
	mHandler.RLock()
	logger.SetHandler(handler)
	mHandler.RUnlock()
	return logger
}

// Printer adapts a Logger to libraries that expect a Println method.
// Messages are logged at ERROR level.
type Printer struct {
	Logger Logger
}

// Println logs the operands joined by spaces.
func (p Printer) Println(v ...interface{}) {
	p.Logger.Errorln(v...)
}

type logFormatter struct{}

// Format outputs a message like "2014-02-28 18:15:57 INFO     [session] session.go:42 something happened"
func (f logFormatter) Format(rec *log.Record) string {
	return fmt.Sprintf("%s %-8s [%s] %-8s %s",
		fmt.Sprint(rec.Time)[:19],
		rec.Level,
		rec.LoggerName,
		filepath.Base(rec.Filename)+":"+strconv.Itoa(rec.Line),
		rec.Message)
}
