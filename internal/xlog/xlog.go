// Package xlog provides the component-prefixed loggers used across
// TextSwitcher. It wraps the standard log package rather than adopting a
// structured-logging library, matching every repo in the reference corpus.
package xlog

import (
	"log"
	"os"
)

// New returns a *log.Logger that prefixes every line with "[name] ".
func New(name string) *log.Logger {
	return log.New(os.Stderr, "["+name+"] ", log.LstdFlags)
}
