// Package logger provides a small factory over log/slog with JSON and text
// handlers, plus attribute helpers shared across the gateway. Components
// receive a *slog.Logger explicitly; nothing in this package is global
// except the optional SetAsDefault escape hatch.
package logger
