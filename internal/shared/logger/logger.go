package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// GetLogger returns the process wide zap.Logger, built once from the environment:
// APP_ENV=production selects the JSON production encoder, LOG_LEVEL overrides the level.
func GetLogger() *zap.Logger {
	once.Do(func() {
		logger = build(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
	})
	return logger
}

func build(env, level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			panic("failed logger setup : invalid LOG_LEVEL " + level)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.Fields(zap.String("service", "bidEngine")))
	if err != nil {
		panic("failed logger setup : " + err.Error())
	}
	return l
}
