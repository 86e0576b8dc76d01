package loggingx

import (
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap returns a logger that writes to a zap logger.
//
// Informational messages are logged at the info level and debug messages at
// the debug level. Debug logging is enabled if the zap logger's core is
// enabled at the debug level.
func Zap(target *zap.Logger) logging.Logger {
	return &zapLogger{target}
}

type zapLogger struct {
	target *zap.Logger
}

func (l *zapLogger) Log(f string, v ...interface{}) {
	l.target.Info(fmt.Sprintf(f, v...))
}

func (l *zapLogger) LogString(s string) {
	l.target.Info(s)
}

func (l *zapLogger) Debug(f string, v ...interface{}) {
	if l.IsDebug() {
		l.target.Debug(fmt.Sprintf(f, v...))
	}
}

func (l *zapLogger) DebugString(s string) {
	l.target.Debug(s)
}

func (l *zapLogger) IsDebug() bool {
	return l.target.Core().Enabled(zapcore.DebugLevel)
}
