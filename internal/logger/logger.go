package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init builds the process-wide logger for the given environment and installs
// it as zap.L().
func Init(environment string) error {
	var zapCfg zap.Config
	if strings.EqualFold(environment, "production") {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.OutputPaths = []string{"stdout"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	level.SetLevel(zapCfg.Level.Level())
	zapCfg.Level = level

	l, err := zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return fmt.Errorf("zapCfg.Build -> %w", err)
	}
	zap.ReplaceGlobals(l)

	return nil
}

var level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

// SetLevel changes the minimum level of the global logger at runtime.
func SetLevel(environment string) {
	if strings.EqualFold(environment, "production") {
		level.SetLevel(zapcore.InfoLevel)
		return
	}
	level.SetLevel(zapcore.DebugLevel)
}
