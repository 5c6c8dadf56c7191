// Package logger wraps zap to offer:
//   - a process-wide sugared logger with console or JSON output,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - leveled helpers (Infof, WarnKV, etc.) that read the logger from a context.
//
// Services and the engine accept a context and extract the logger from it,
// so every component logs under its own name with its own fields.
package logger
