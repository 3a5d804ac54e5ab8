package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger is a zerolog logger bound to the service name. Derived loggers
// share the service and add their own context.
type Logger struct {
	zl      zerolog.Logger
	service string
}

var global *Logger

// Init builds the global logger from cfg and installs the component level
// overrides. A bad override is reported and ignored.
func Init(cfg Config, serviceName string) {
	cfg.ApplyDefaults()
	global = New(&cfg, serviceName)
	if err := SetComponentLevels(cfg.Levels); err != nil {
		global.Warn("ignoring component levels", ErrorFields("logger.init", err))
	}
	// Third-party code that logs through zerolog's global gets the same shape.
	log.Logger = global.zl
}

// GetGlobalLogger returns the logger installed by Init, or a console
// logger when Init was never called.
func GetGlobalLogger() *Logger {
	if global == nil {
		global = NewDefault("livecue")
	}
	return global
}

// New creates a logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	return NewWithWriter(cfg, serviceName, outputWriter(cfg.Output))
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zc zerolog.Context
	if isConsole(cfg.Format) {
		zc = zerolog.New(consoleWriter(w, serviceName, cfg.NoColor)).With().Timestamp()
	} else {
		zc = zerolog.New(w).With()
		if cfg.Timestamp {
			zc = zc.Timestamp()
		}
		if serviceName != "" {
			zc = zc.Str(FieldService, serviceName)
		}
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger().Level(level), service: serviceName}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	return New(&Config{Level: "info", Format: FormatConsole, Output: "stdout", Timestamp: true}, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// WithComponent tags the logger with a component name. The component's
// level from logging.levels applies when one is set.
func (l *Logger) WithComponent(name string) *Logger {
	zl := l.zl.With().Str(FieldComponent, name).Logger()
	if lv, ok := componentLevel(name); ok && l.zl.GetLevel() != zerolog.Disabled {
		zl = zl.Level(lv)
	}
	return l.derive(zl)
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.zl.With().Fields(fields).Logger())
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

func (l *Logger) derive(zl zerolog.Logger) *Logger {
	return &Logger{zl: zl, service: l.service}
}

// emit writes one entry. A nil event means the level is disabled.
func emit(ev *zerolog.Event, msg string, fields []map[string]interface{}) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		ev = ev.Fields(f)
	}
	ev.Msg(msg)
}

func isConsole(format string) bool {
	switch strings.ToLower(format) {
	case FormatConsole, FormatPretty:
		return true
	}
	return false
}

func outputWriter(output string) *os.File {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// levelColors maps zerolog level names to ANSI colors for console output.
var levelColors = map[string]int{
	"debug": 36,
	"info":  32,
	"warn":  33,
	"error": 31,
	"fatal": 35,
}

func paint(s string, color int, off bool) string {
	if off || color == 0 {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
}

// consoleWriter renders "09:00:00.000 [LIV][INF] message key:value".
func consoleWriter(w io.Writer, serviceName string, noColor bool) zerolog.ConsoleWriter {
	prefix := ""
	if len(serviceName) >= 3 {
		prefix = paint("["+strings.ToUpper(serviceName[:3])+"]", 34, noColor)
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			name, _ := i.(string)
			tag := strings.ToUpper(name)
			if len(tag) > 3 {
				tag = tag[:3]
			}
			return prefix + paint("["+tag+"]", levelColors[name], noColor)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
		FormatFieldValue: func(i interface{}) string {
			if i == nil {
				return ""
			}
			return fmt.Sprintf("%s", i)
		},
	}
}
