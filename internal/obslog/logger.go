// Package obslog builds the process-wide structured logger. No package in
// this repo reaches for a package-level logger global; every constructor
// takes a *zap.Logger explicitly (Design Notes: no ambient mutable
// singletons).
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger, or a development one (console
// encoder, debug level) when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Named returns a child logger scoped to a network, the common case across
// every network-scoped component in this codebase.
func Named(base *zap.Logger, network string) *zap.Logger {
	return base.With(zap.String("network", network))
}
