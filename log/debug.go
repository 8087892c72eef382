// SPDX-License-Identifier: ice License 1.0

package log

// SetDebugMode toggles SDK trace output (relay traffic, reconciliation decisions), independently of the level.
func SetDebugMode(enabled bool) {
	debugMode.Store(enabled)
}

func DebugMode() bool {
	return debugMode.Load()
}

// Trace is emitted at info level, but only while debug mode is on.
func Trace(msg string, fields ...any) {
	if !DebugMode() {
		return
	}
	Info(msg, fields...)
}
