// Package logging provides the injectable leveled-logging interface used
// throughout this module. No third-party structured logging library
// appears anywhere across this codebase's lineage — every component logs
// through the standard library's log package, directly or via a thin
// interface like this one. Components depend on Logger rather than calling
// log.Printf directly so tests can inject a recording implementation.
package logging

import (
	"fmt"
	"log"
)

// Logger is the leveled logging contract components in this module accept,
// matching the Debugf/Infof/Warnf/Errorf surface already used informally
// (as plain log.Printf calls) throughout the teacher codebase.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Standard is the default Logger, delegating to the standard library's
// log package with a level prefix, the same style as the teacher's
// "[TRANSPORT]"/"[JOB]" bracketed log lines.
type Standard struct {
	prefix string
}

// NewStandard creates a Logger that prefixes every line with
// "[<component>]", e.g. NewStandard("manager").
func NewStandard(component string) *Standard {
	return &Standard{prefix: fmt.Sprintf("[%s]", component)}
}

func (s *Standard) Debugf(format string, args ...any) { log.Printf(s.prefix+" DEBUG "+format, args...) }
func (s *Standard) Infof(format string, args ...any)  { log.Printf(s.prefix+" INFO "+format, args...) }
func (s *Standard) Warnf(format string, args ...any)  { log.Printf(s.prefix+" WARN "+format, args...) }
func (s *Standard) Errorf(format string, args ...any) { log.Printf(s.prefix+" ERROR "+format, args...) }

// Noop discards everything, for tests that don't care about log output.
type Noop struct{}

func (Noop) Debugf(string, ...any) {}
func (Noop) Infof(string, ...any)  {}
func (Noop) Warnf(string, ...any)  {}
func (Noop) Errorf(string, ...any) {}
