package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoSelection    = errors.New("selection must name exactly one of css, xpath or text")
	ErrNodeNotFound   = errors.New("selection matched no element")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrJobNotFound    = errors.New("job not found")
	ErrEmptyHTML      = errors.New("rendered page is empty")
	ErrInvalidMode    = errors.New("invalid render mode")
	ErrNoItems        = errors.New("item list selector matched nothing")
)

// SelectorSyntaxError is returned when a CSS or XPath expression cannot be
// compiled. Expr is the expression as supplied, XPath the translated form.
type SelectorSyntaxError struct {
	Expr  string
	XPath string
	Err   error
}

func (e *SelectorSyntaxError) Error() string {
	if e.XPath != "" && e.XPath != e.Expr {
		return fmt.Sprintf("invalid selector %q (xpath %q): %v", e.Expr, e.XPath, e.Err)
	}
	return fmt.Sprintf("invalid selector %q: %v", e.Expr, e.Err)
}

func (e *SelectorSyntaxError) Unwrap() error { return e.Err }

// AncestorNotFoundError means no repeating container could be found above
// the selected element. Callers should retry with an explicit ancestor.
type AncestorNotFoundError struct {
	XPath string
}

func (e *AncestorNotFoundError) Error() string {
	if e.XPath == "" {
		return "item ancestor not found: provide an explicit ancestor selector"
	}
	return fmt.Sprintf("item ancestor not found for %q: provide an explicit ancestor selector", e.XPath)
}

// RenderError wraps network and browser failures while rendering a page.
type RenderError struct {
	URL        string
	Mode       RenderMode
	StatusCode int
	Err        error
}

func (e *RenderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("render %s (%s, status %d): %v", e.URL, e.Mode, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("render %s (%s): %v", e.URL, e.Mode, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ItemError wraps a failure while extracting one list item or detail page.
// It is logged and counted, never returned from a crawl.
type ItemError struct {
	Index int
	URL   string
	Err   error
}

func (e *ItemError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("item %d (%s): %v", e.Index, e.URL, e.Err)
	}
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a storage backend.
type StorageError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("storage error (%s %s): %v", e.Backend, e.Operation, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the record pipeline.
type PipelineError struct {
	Stage  string
	Record *OutputRecord
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
