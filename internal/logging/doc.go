// Package logging builds the app-wide slog logger: pretty console output,
// optional JSON file output, and an optional rate-limited Discord channel
// transport. Handlers can be swapped at runtime (config hot reload)
// without replacing the *slog.Logger held by components.
package logging
