package models

import (
	"errors"
	"fmt"
)

var (
	ErrMissingPlugin  = errors.New("required neo4j plugin is missing")
	ErrNoTexts        = errors.New("no texts provided")
	ErrNoEntityTypes  = errors.New("no allowed entity types provided")
	ErrPipelineClosed = errors.New("pipeline closed")
)

// MissingPluginError is returned when APOC or GDS is not installed, or the
// installed version does not satisfy the configured constraint.
type MissingPluginError struct {
	Plugin string
	Reason string
}

func (e *MissingPluginError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("you need to install and allow %s procedures", e.Plugin)
	}
	return fmt.Sprintf("%s: %s", e.Plugin, e.Reason)
}

func (e *MissingPluginError) Unwrap() error {
	return ErrMissingPlugin
}

func NewMissingPluginError(plugin, reason string) error {
	return &MissingPluginError{Plugin: plugin, Reason: reason}
}
