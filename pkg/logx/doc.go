// Package logx is a small zerolog-backed structured logger used by the
// low-level infrastructure packages (storage, config) that must not depend
// on the app-level slog service.
package logx
