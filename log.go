package editorcore

import "go.uber.org/zap"

// defaultLogger is used by any State or Editor constructed without an
// explicit WithLogger option: a no-op logger, so embedding a core
// Editor never writes to stderr unless the host opts in via
// SetDefaultLogger or Editor.WithLogger.
var defaultLogger = zap.NewNop()

// SetDefaultLogger replaces the package-wide fallback logger used by
// states that weren't given one explicitly. Intended for process
// startup, before any Editor is constructed.
func SetDefaultLogger(l *zap.Logger) {
	if l != nil {
		defaultLogger = l
	}
}
