// Package logging builds the zap logger used across labelpatch.
package logging

import (
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/strongdm/labelpatch/internal/config"
)

// New builds a logger writing to w. Callers pass stderr so stdout stays
// reserved for the patch summary.
func New(cfg *config.Config, w io.Writer) *zap.Logger {
	var encCfg zapcore.EncoderConfig
	var enc zapcore.Encoder
	if strings.EqualFold(cfg.LogFormat, "json") {
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(w), Level(cfg.LogLevel))
	return zap.New(core)
}

// Level maps a config level name to a zap level; unknown names mean warn.
func Level(name string) zap.AtomicLevel {
	switch strings.ToLower(name) {
	case "debug":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case "error":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
}
