// Package logging builds the zap logger used by the node and the CLI.
package logging

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bitfsorg/tiersplit-go/config"
)

// ErrInvalidLevel indicates the configured log level is not recognized.
var ErrInvalidLevel = errors.New("logging: invalid level")

// New builds a JSON logger from cfg and returns it with its level handle.
// Output goes to cfg.LogFile, or stderr when it is empty. Regtest nodes get
// the development profile (caller info, stack traces on warnings).
func New(cfg config.Config) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Network == "regtest" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Encoding = "json"
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.Level = level
	zc.DisableStacktrace = cfg.Network != "regtest"
	if cfg.LogFile != "" {
		zc.OutputPaths = []string{cfg.LogFile}
	} else {
		zc.OutputPaths = []string{"stderr"}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger.With(zap.String("network", cfg.Network)), level, nil
}

// ParseLevel converts a level name to an atomic level. Empty means info.
func ParseLevel(s string) (zap.AtomicLevel, error) {
	if strings.TrimSpace(s) == "" {
		return zap.NewAtomicLevelAt(zapcore.InfoLevel), nil
	}
	var lvl zapcore.Level
	if err := lvl.Set(strings.ToLower(s)); err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return zap.NewAtomicLevelAt(lvl), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }
