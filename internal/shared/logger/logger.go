package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"thing-counter/internal/shared/contextkeys"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

const (
	BackendLogrus = "logrus"
	BackendZap    = "zap"

	FormatText = "text"
	FormatJSON = "json"

	timestampFormat = "2006-01-02T15:04:05.000Z07:00"
)

// Logger defines the interface for structured logging operations
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Fatal(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
	WithContext(ctx context.Context) Logger
	WithComponent(component string) Logger
}

// Config selects the backend, level and format. Production environments
// always log JSON.
type Config struct {
	Backend     string `env:"LOG_BACKEND" envDefault:"logrus"`
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Format      string `env:"LOG_FORMAT" envDefault:"text"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

func (c Config) JSON() bool {
	env := strings.ToLower(c.Environment)
	return strings.EqualFold(c.Format, FormatJSON) || env == "production" || env == "prod"
}

// ConfigFromEnv reads Config from the environment, falling back to defaults
func ConfigFromEnv() Config {
	cfg := Config{Backend: BackendLogrus, Level: "info", Format: FormatText, Environment: "development"}
	_ = env.Parse(&cfg)
	return cfg
}

// NewLogger creates a logger configured from the environment
func NewLogger() Logger {
	return New(ConfigFromEnv(), os.Stdout)
}

// New builds a logger writing to out. The zap backend always writes to
// stderr and falls back to logrus if it cannot be built.
func New(cfg Config, out io.Writer) Logger {
	if strings.EqualFold(cfg.Backend, BackendZap) {
		if zl, err := NewZapLogger(cfg.Level, cfg.JSON()); err == nil {
			return zl
		}
	}

	l := logrus.New()
	l.SetOutput(out)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	if cfg.JSON() {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// LogrusLogger implements Logger on a logrus entry
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLoggerFromEntry wraps an existing logrus entry. Tests use it to
// capture output.
func NewLogrusLoggerFromEntry(entry *logrus.Entry) Logger {
	return &LogrusLogger{entry: entry}
}

func (l *LogrusLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *LogrusLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *LogrusLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *LogrusLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *LogrusLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }

func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }

func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// WithContext adds the user and request ids carried by ctx
func (l *LogrusLogger) WithContext(ctx context.Context) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(contextFields(ctx)))}
}

func (l *LogrusLogger) WithComponent(component string) Logger {
	return &LogrusLogger{entry: l.entry.WithField("component", component)}
}

var contextKeys = []struct {
	key  interface{}
	name string
}{
	{contextkeys.UserIDKey, "user_id"},
	{contextkeys.RequestIDKey, "request_id"},
	{contextkeys.ComponentKey, "component"},
	{contextkeys.OperationKey, "operation"},
}

func contextFields(ctx context.Context) map[string]interface{} {
	fields := make(map[string]interface{})
	if ctx == nil {
		return fields
	}
	for _, k := range contextKeys {
		if val, ok := ctx.Value(k.key).(string); ok && val != "" {
			fields[k.name] = val
		}
	}
	return fields
}
