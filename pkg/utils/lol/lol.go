// Package lol (log of levels) is a small leveled logger with colored level
// labels and caller locations, configured once at startup from the
// BEACON_LOG_LEVEL setting.
package lol

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"go.uber.org/atomic"
)

// Level is the verbosity of the logger; everything at or below the configured
// level is printed.
type Level int32

const (
	Off Level = iota
	Fatal
	Error
	Warn
	Info
	Debug
	Trace
)

var LevelNames = []string{"off", "fatal", "error", "warn", "info", "debug", "trace"}

var levelColors = []func(a ...interface{}) string{
	color.New(color.FgWhite).Sprint,
	color.New(color.BgRed, color.FgWhite).Sprint,
	color.New(color.FgRed).Sprint,
	color.New(color.FgYellow).Sprint,
	color.New(color.FgGreen).Sprint,
	color.New(color.FgBlue).Sprint,
	color.New(color.FgMagenta).Sprint,
}

var (
	currentLevel atomic.Int32
	writer       io.Writer = os.Stderr
	writerMx     sync.Mutex
)

func init() { currentLevel.Store(int32(Info)) }

// SetLogLevel sets the active level by name. Unknown names leave the level at
// info.
func SetLogLevel(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range LevelNames {
		if n == name {
			currentLevel.Store(int32(i))
			return
		}
	}
	currentLevel.Store(int32(Info))
}

// GetLogLevel returns the active level.
func GetLogLevel() Level { return Level(currentLevel.Load()) }

// SetWriter redirects output, used by tests.
func SetWriter(w io.Writer) {
	writerMx.Lock()
	defer writerMx.Unlock()
	writer = w
}

// Ln is a logger printing a level label, the message and the call site.
type Ln struct {
	level Level
}

// New returns a printer for the given level.
func New(level Level) *Ln { return &Ln{level: level} }

func (l *Ln) enabled() bool { return Level(currentLevel.Load()) >= l.level }

func (l *Ln) emit(msg string) {
	loc := caller(3)
	ts := time.Now().Format("15:04:05.000")
	writerMx.Lock()
	defer writerMx.Unlock()
	fmt.Fprintf(
		writer, "%s %s %s %s\n",
		ts, levelColors[l.level](strings.ToUpper(LevelNames[l.level][:1])),
		msg, color.New(color.Faint).Sprint(loc),
	)
}

// F prints a printf style message.
func (l *Ln) F(format string, a ...interface{}) {
	if !l.enabled() {
		return
	}
	l.emit(fmt.Sprintf(format, a...))
}

// Ln prints the arguments separated by spaces.
func (l *Ln) Ln(a ...interface{}) {
	if !l.enabled() {
		return
	}
	l.emit(strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
}

// S spew-dumps the arguments, for deep structure inspection.
func (l *Ln) S(a ...interface{}) {
	if !l.enabled() {
		return
	}
	l.emit(strings.TrimSuffix(spew.Sdump(a...), "\n"))
}

// C prints the result of a closure, so expensive renders only run when the
// level is active.
func (l *Ln) C(fn func() string) {
	if !l.enabled() {
		return
	}
	l.emit(fn())
}

// Chk logs err at the printer's level and reports whether it was non-nil.
func (l *Ln) Chk(err error) bool {
	if err == nil {
		return false
	}
	if l.enabled() {
		l.emit(err.Error())
	}
	return true
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}
