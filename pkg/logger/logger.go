// Package logger wraps zap with the small, colorized presentation layer the
// command-line tools want: a startup banner, section headers, and a leveled
// log API that reads naturally at a call site (logger.Info("listening on %s", addr)).
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// ANSI color codes used by Banner and Section, which print straight to
// stdout rather than through zap since they're presentation, not log lines.
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorCyan   = "\033[36m"
)

var sugared *zap.SugaredLogger

func init() {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	sugared = l.Sugar()
}

// Configure replaces the package-level logger, e.g. with a development
// config for CLI tools or a config read from disk for a server.
func Configure(l *zap.Logger) {
	sugared = l.Sugar()
}

// Raw returns the underlying zap logger for callers that need structured
// fields instead of Printf-style formatting.
func Raw() *zap.Logger {
	return sugared.Desugar()
}

func Debug(format string, args ...interface{}) {
	sugared.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	sugared.Infof(format, args...)
}

func Warn(format string, args ...interface{}) {
	sugared.Warnf(format, args...)
}

func Error(format string, args ...interface{}) {
	sugared.Errorf(format, args...)
}

// Success logs at info level; it exists as its own call so call sites read
// as intent ("the handshake succeeded") rather than generic info noise.
func Success(format string, args ...interface{}) {
	sugared.Infof(format, args...)
}

// Fatal logs and exits the process, matching zap's own Fatal semantics.
func Fatal(format string, args ...interface{}) {
	sugared.Fatalf(format, args...)
}

// Section prints a section header to stdout, outside the structured log
// stream, for human-facing CLI output.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application banner to stdout.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   ███╗   ██╗███████╗██████╗ ████████╗██╗   ██╗███╗   ██╗ ║
║   ████╗  ██║██╔════╝██╔══██╗╚══██╔══╝██║   ██║████╗  ██║ ║
║   ██╔██╗ ██║█████╗  ██████╔╝   ██║   ██║   ██║██╔██╗ ██║ ║
║   ██║╚██╗██║██╔══╝  ██╔═══╝    ██║   ██║   ██║██║╚██╗██║ ║
║   ██║ ╚████║███████╗██║        ██║   ╚██████╔╝██║ ╚████║ ║
║   ╚═╝  ╚═══╝╚══════╝╚═╝        ╚═╝    ╚═════╝ ╚═╝  ╚═══╝ ║
║                                                           ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
