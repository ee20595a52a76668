package common

import (
	"errors"
	"strings"
)

// ErrModulePaused is returned when an operation targets a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a native module is administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view means nothing
// is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// PauseSet is a PauseView backed by a static set of module names, typically
// sourced from the marketplace policy file.
type PauseSet map[string]struct{}

// NewPauseSet normalises the supplied module names into a PauseSet.
func NewPauseSet(modules []string) PauseSet {
	set := make(PauseSet, len(modules))
	for _, m := range modules {
		trimmed := strings.ToLower(strings.TrimSpace(m))
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return set
}

func (s PauseSet) IsPaused(module string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[strings.ToLower(strings.TrimSpace(module))]
	return ok
}
