package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Format selects the zap encoder used for log lines.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

var (
	mu         sync.RWMutex
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	atomLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// initLogger builds the global logger on first use: stderr, console
// encoding, INFO level.
func initLogger() {
	loggerOnce.Do(func() {
		mu.Lock()
		logger = build(FormatConsole)
		mu.Unlock()
	})
}

func build(format Format) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}

	var enc zapcore.Encoder
	if format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), atomLevel)
	return zap.New(core).Sugar()
}

// Configure swaps the encoder and level. Unknown values fall back to
// console/INFO.
func Configure(level Level, format Format) {
	initLogger()
	SetLevel(level)
	if format != FormatJSON {
		format = FormatConsole
	}
	mu.Lock()
	old := logger
	logger = build(format)
	mu.Unlock()
	_ = old.Sync()
}

func SetLevel(l Level) {
	initLogger()
	switch Level(strings.ToUpper(string(l))) {
	case LevelDebug:
		atomLevel.SetLevel(zapcore.DebugLevel)
	case LevelError:
		atomLevel.SetLevel(zapcore.ErrorLevel)
	default:
		atomLevel.SetLevel(zapcore.InfoLevel)
	}
}

// Sync flushes buffered log entries. Call before exit.
func Sync() {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	_ = logger.Sync()
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, pairs(kv)...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, pairs(kv)...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Errorw(msg, pairs(extended)...)
}

func current() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// pairs drops a trailing key without value and any non-string key, so a
// malformed call never turns into a zap DPanic.
func pairs(kv []any) []any {
	out := make([]any, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, kv[i+1])
	}
	return out
}
