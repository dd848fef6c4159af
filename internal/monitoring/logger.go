package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the analysis
// stages. It defaults to log.Printf but may be replaced by SetLogger.
// Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Warnf records a non-fatal condition worth surfacing, such as a
// filter hitting its iteration cap. It shares the sink set by
// SetLogger and tags the line so warnings are greppable.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}

// SetLogger replaces the package logger. Passing nil will set a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
