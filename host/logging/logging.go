// Package logging builds the structured loggers used by the host tools.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the logger type passed around the host packages
type Logger = logiface.Logger[logiface.Event]

// ParseLevel maps a level name ("info", "debug", ...) to a logiface level
func ParseLevel(name string) (logiface.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return logiface.LevelInformational, nil
	}
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == name {
			return level, nil
		}
	}
	switch name {
	case "error":
		return logiface.LevelError, nil
	case "warn":
		return logiface.LevelWarning, nil
	}
	return logiface.LevelDisabled, fmt.Errorf("unknown log level %q", name)
}

// New returns a JSON logger writing to w at the named level
func New(w io.Writer, level string) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(lvl),
	).Logger(), nil
}
