package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const name = "docstore"

// environment knobs read once, when the process logger is first built
const (
	LevelEnv = "DOCSTORE_LOG_LEVEL"
	FileEnv  = "DOCSTORE_LOG_FILE"
)

var logger *zap.SugaredLogger
var logInit sync.Once
var logMu sync.RWMutex

// initLogger builds the process logger writing to stderr, and additionally
// appending to the file named by DOCSTORE_LOG_FILE if set
func initLogger() (err error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl := os.Getenv(LevelEnv); lvl != "" {
		if err = level.UnmarshalText([]byte(lvl)); err != nil {
			err = fmt.Errorf("invalid log level %q: %s", lvl, err)
			return
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	if path := os.Getenv(FileEnv); path != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, path)
	}
	base, err := cfg.Build()
	if err != nil {
		err = fmt.Errorf("building logger failed: %s", err)
		return
	}
	logger = base.Named(name).Sugar()
	return
}

// Logger gives the logger instance to enable logging events
func Logger() *zap.SugaredLogger {
	logInit.Do(func() {
		if err := initLogger(); err != nil {
			panic(fmt.Sprintf("error while initializing internal logger: %s", err))
		}
	})
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// SetLogger replaces the process logger. A nil logger discards everything.
func SetLogger(l *zap.Logger) {
	logInit.Do(func() {})
	if l == nil {
		l = zap.NewNop()
	}
	logMu.Lock()
	logger = l.Named(name).Sugar()
	logMu.Unlock()
}

// WriteLogAndReturnError logs a given formatted string at error level and
// returns an error generated from the string
func WriteLogAndReturnError(format string, params ...interface{}) error {
	err := errors.Errorf(format, params...)
	Logger().Error(err.Error())
	return err
}

// Sync flushes buffered log entries; call it before the process exits
func Sync() {
	_ = Logger().Sync()
}
