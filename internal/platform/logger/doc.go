// Package logger sets up structured JSON logging with log/slog and carries
// request-scoped loggers through context.Context.
package logger
