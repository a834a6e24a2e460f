// Package logging is the launcher's debug-log sink: one file per session
// under logs/, with colored console output from the Step/Success/Warn/Info
// helpers. Entries are written to the file synchronously on the caller's
// goroutine; there is no dedicated writer goroutine, so a disk stall blocks
// the caller.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	successPrefix = color.New(color.FgGreen, color.Bold).Sprint("✓")
	warnPrefix    = color.New(color.FgYellow, color.Bold).Sprint("⚠")
	infoPrefix    = color.New(color.FgCyan).Sprint("ℹ")
	stepPrefix    = color.New(color.FgBlue).Sprint("●")
)

// Logger wraps a zap.SugaredLogger bound to one launcher session's file.
type Logger struct {
	z    *zap.SugaredLogger
	sink *lumberjack.Logger
}

// New opens (or creates) logs/<timestamp>.log under root and writes
// structured entries to that file only; console output comes from the
// Step/Success/Warn/Info helpers. Matches §6's
// "one file per launcher session at logs/YYYY-MM-DD-HH-MM-SS.log".
func New(root string) (*Logger, error) {
	logDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	name := time.Now().Format("2006-01-02-15-04-05") + ".log"
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, name),
		MaxSize:    20, // MiB before rotation, generous for a single session file
		MaxBackups: 5,
		Compress:   false,
	}

	fileEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:      "T",
		LevelKey:     "L",
		MessageKey:   "M",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.CapitalLevelEncoder,
		LineEnding:   zapcore.DefaultLineEnding,
		EncodeCaller: zapcore.ShortCallerEncoder,
	})
	core := zapcore.NewCore(fileEncoder, zapcore.AddSync(sink), zapcore.DebugLevel)

	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{z: z.Sugar(), sink: sink}, nil
}

// Close flushes and releases the session's log file.
func (l *Logger) Close() error {
	_ = l.z.Sync()
	return l.sink.Close()
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.z.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.z.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.z.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.z.Errorf(format, args...) }

// With returns a logger carrying structured key/value fields on every
// subsequent entry, e.g. l.With("instance", name).Infof("launching").
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{z: l.z.With(kv...), sink: l.sink}
}

// The following mirror the teacher's headerLine/stepLine/successLine
// console vocabulary (utils.go), now writing through zap's console core
// instead of a hand-rolled tee, and printing a colored line to stdout too.
func (l *Logger) Step(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", stepPrefix, msg)
	l.z.Infof("step: %s", msg)
}

func (l *Logger) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", successPrefix, msg)
	l.z.Infof("ok: %s", msg)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", warnPrefix, msg)
	l.z.Warnf(msg)
}

func (l *Logger) Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Printf("%s %s\n", infoPrefix, msg)
	l.z.Infof(msg)
}
