package observability

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes one JSON object per event. Messages are snake_case event
// names; fields carry the details.
type Logger struct {
	base *logrus.Logger
}

// NewLogger logs to stdout and, when logFile is set, also to a rotating file.
func NewLogger(level, logFile string) *Logger {
	var out io.Writer = os.Stdout
	if strings.TrimSpace(logFile) != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	return NewLoggerWithWriter(out, level)
}

func NewLoggerWithWriter(out io.Writer, level string) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})

	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)

	return &Logger{base: base}
}

func (l *Logger) Debug(message string, fields map[string]any) {
	l.base.WithFields(logrus.Fields(fields)).Debug(message)
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.base.WithFields(logrus.Fields(fields)).Info(message)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.base.WithFields(logrus.Fields(fields)).Warn(message)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.base.WithFields(logrus.Fields(fields)).Error(message)
}
