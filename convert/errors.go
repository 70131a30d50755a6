// errors.go - Fehlerarten der Konvertierung
//
// Enthaelt:
// - ErrNotFound, ErrTypeMismatch, ErrInference, ErrEmptyResult: Sentinels fuer errors.Is
// - PathError, TypeMismatchError, InferenceError: Fehler mit Details fuer errors.As
package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("path not found in checkpoint")
	ErrTypeMismatch = errors.New("not a state dict")
	ErrInference    = errors.New("cannot infer state_dict from checkpoint")
	ErrEmptyResult  = errors.New("no tensor entries found in extracted state_dict")
)

// PathError reports the first segment of a dot path that could not be resolved.
type PathError struct {
	Path    string
	Segment string
	// Suggestion is the closest existing key, if any
	Suggestion string
}

func (e *PathError) Error() string {
	msg := fmt.Sprintf("path %q not found in checkpoint: no key %q", e.Path, e.Segment)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *PathError) Unwrap() error {
	return ErrNotFound
}

// TypeMismatchError reports a node that is not a flat tensor mapping where one was
// required. Path is empty when the checkpoint root itself is meant.
type TypeMismatchError struct {
	Path   string
	Reason string
}

func (e *TypeMismatchError) Error() string {
	if e.Path == "" {
		return "checkpoint root " + e.Reason
	}
	return fmt.Sprintf("value at --state-dict-key %q %s", e.Path, e.Reason)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// InferenceError lists the top-level keys of a checkpoint in which no candidate path
// held a state dict.
type InferenceError struct {
	TopKeys []string
	// Total is the number of top-level keys, which may exceed len(TopKeys)
	Total int
}

func (e *InferenceError) Error() string {
	keys := strings.Join(e.TopKeys, ", ")
	if e.Total > len(e.TopKeys) {
		keys += fmt.Sprintf(", ... (%d more)", e.Total-len(e.TopKeys))
	}
	return fmt.Sprintf("%s. Top-level keys: [%s]. Please specify --state-dict-key.", ErrInference, keys)
}

func (e *InferenceError) Unwrap() error {
	return ErrInference
}
