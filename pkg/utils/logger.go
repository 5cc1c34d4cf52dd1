// Package utils holds small shared helpers: logging setup, vector math,
// and text truncation.
package utils

import (
	"go.uber.org/zap"
)

// NewLogger creates a zap logger. Debug mode uses the development
// config with colored console output; otherwise the production config
// with JSON output.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
