package config

import "go.uber.org/zap"

// NewLogger returns a JSON production logger for the prod environment and
// a human-readable development logger everywhere else.
func NewLogger(env string) (*zap.Logger, error) {
    if env == "prod" {
        return zap.NewProduction()
    }
    return zap.NewDevelopment()
}
