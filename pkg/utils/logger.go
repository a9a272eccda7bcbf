package utils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig configures the structured logger.
type LogConfig struct {
	Level       string // debug, info, warn, error, fatal
	Format      string // json, text
	Output      string // path, or empty for stderr
	Development bool
}

// Logger wraps zap.Logger with domain-specific field helpers.
type Logger struct {
	*zap.Logger
	sugar *zap.SugaredLogger
}

// InitLogger builds a Logger from config, falling back to stderr on any
// output-path failure rather than panicking.
func InitLogger(cfg LogConfig) *Logger {
	level := parseLevel(cfg.Level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.MessageKey = "message"
	encoderCfg.LevelKey = "level"

	var encoder zapcore.Encoder
	if strings.ToLower(cfg.Format) == "text" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sink := zapcore.AddSync(os.Stderr)
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			sink = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(encoder, sink, level)

	var opts []zap.Option
	if cfg.Development {
		opts = append(opts, zap.Development(), zap.AddCaller())
	}

	zl := zap.New(core, opts...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

// Sugar returns the SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.sugar
}

// With returns a new Logger with additional structured fields attached.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.Logger.With(fields...)
	return &Logger{Logger: zl, sugar: zl.Sugar()}
}

func (l *Logger) WithComponent(name string) *Logger { return l.With(Component(name)) }
func (l *Logger) WithExchange(name string) *Logger  { return l.With(Exchange(name)) }
func (l *Logger) WithSymbol(symbol string) *Logger  { return l.With(Symbol(symbol)) }
func (l *Logger) WithPairID(id int) *Logger         { return l.With(PairID(id)) }

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// ============================================================
// Field constructors — domain-specific shorthand over zap.Field
// ============================================================

func Exchange(v string) zap.Field  { return zap.String("exchange", v) }
func Symbol(v string) zap.Field    { return zap.String("symbol", v) }
func PairID(v int) zap.Field       { return zap.Int("pair_id", v) }
func OrderID(v string) zap.Field   { return zap.String("order_id", v) }
func SignalID(v string) zap.Field  { return zap.String("signal_id", v) }
func Price(v float64) zap.Field    { return zap.Float64("price", v) }
func Volume(v float64) zap.Field   { return zap.Float64("volume", v) }
func Spread(v float64) zap.Field   { return zap.Float64("spread", v) }
func PNL(v float64) zap.Field      { return zap.Float64("pnl", v) }
func Side(v string) zap.Field      { return zap.String("side", v) }
func State(v string) zap.Field     { return zap.String("state", v) }
func Latency(ms float64) zap.Field { return zap.Float64("latency_ms", ms) }
func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func UserID(v int) zap.Field       { return zap.Int("user_id", v) }
func Component(v string) zap.Field { return zap.String("component", v) }

// Re-exported general-purpose constructors so callers need only import utils.
var (
	String  = zap.String
	Int     = zap.Int
	Int64   = zap.Int64
	Float64 = zap.Float64
	Bool    = zap.Bool
	Err     = zap.Error
	Any     = zap.Any
)

func fieldsToInterface(fields []zap.Field) []interface{} {
	out := make([]interface{}, 0, len(fields)*2)
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	for k, v := range enc.Fields {
		out = append(out, k, v)
	}
	return out
}

// ============================================================
// Global logger
// ============================================================

var (
	globalMu     sync.Mutex
	globalLogger *Logger
)

// GetGlobalLogger returns the process-wide logger, initializing it with
// defaults on first use.
func GetGlobalLogger() *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = InitLogger(LogConfig{})
	}
	return globalLogger
}

// InitGlobalLogger builds a logger from cfg and installs it globally.
func InitGlobalLogger(cfg LogConfig) *Logger {
	l := InitLogger(cfg)
	SetGlobalLogger(l)
	return l
}

// SetGlobalLogger installs l as the process-wide logger.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// L is shorthand for GetGlobalLogger.
func L() *Logger { return GetGlobalLogger() }

func Debug(msg string, fields ...zap.Field) { GetGlobalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { GetGlobalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { GetGlobalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { GetGlobalLogger().Error(msg, fields...) }

func Debugf(format string, args ...interface{}) { GetGlobalLogger().Sugar().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetGlobalLogger().Sugar().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetGlobalLogger().Sugar().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetGlobalLogger().Sugar().Errorf(format, args...) }
