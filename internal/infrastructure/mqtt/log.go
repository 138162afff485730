package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// libraryLogger adapts slog to paho's package-level Logger interface.
type libraryLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (l libraryLogger) Println(v ...interface{}) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l libraryLogger) Printf(format string, v ...interface{}) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// SetLibraryLogger routes paho's internal logging to logger. DEBUG output is
// only routed when debug is true; paho is very chatty at that level.
// paho's loggers are process-wide, so call this once at startup.
func SetLibraryLogger(logger *slog.Logger, debug bool) {
	logger = logger.With("component", "paho")
	pahomqtt.CRITICAL = libraryLogger{logger: logger, level: slog.LevelError}
	pahomqtt.ERROR = libraryLogger{logger: logger, level: slog.LevelError}
	pahomqtt.WARN = libraryLogger{logger: logger, level: slog.LevelWarn}
	if debug {
		pahomqtt.DEBUG = libraryLogger{logger: logger, level: slog.LevelDebug}
	}
}
