// Package avlog centralizes per-package logger construction so every
// client in avcore logs through the same backend and format.
package avlog

import (
	"os"

	"github.com/op/go-logging"
)

var stderrFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} %{module} ▶ %{message}`,
)

var backend = func() logging.Backend {
	raw := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(raw, stderrFormat)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.NOTICE, "")
	return leveled
}()

func init() {
	logging.SetBackend(backend)
}

// New returns a module-scoped logger. module is used both as the
// logging.Logger's name (shown in every line) and as the level key, so
// SetLevel(module, ...) can be targeted at one subsystem without
// affecting the others.
func New(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// SetLevel adjusts the severity threshold for one module's logger.
// Absent an explicit call, every module defaults to logging.NOTICE.
func SetLevel(module string, level logging.Level) {
	logging.SetLevel(level, module)
}
