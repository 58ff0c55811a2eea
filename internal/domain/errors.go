package domain

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for the host-facing error contract.
type Kind string

const (
	KindNoLayers              Kind = "no_layers"
	KindEmptyLayer            Kind = "empty_layer"
	KindBadTraitImage         Kind = "bad_trait_image"
	KindInsufficientDiversity Kind = "insufficient_diversity"
	KindTimeout               Kind = "timeout"
	KindCancelled             Kind = "cancelled"
	KindOutOfMemory           Kind = "out_of_memory"
	KindIOError               Kind = "io_error"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNoPendingJob = errors.New("no pending job")
	ErrJobTerminal  = errors.New("job already terminal")
)

// Error is the structured failure every engine component surfaces. The Job
// Controller is the only place that turns these into user-visible messages.
type Error struct {
	Kind      Kind
	Path      string
	Layer     string
	Requested int
	Capacity  int64
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNoLayers:
		return "no layers found in input tree"
	case KindEmptyLayer:
		return fmt.Sprintf("layer %q has no usable trait images", e.Layer)
	case KindBadTraitImage:
		if e.Err != nil {
			return fmt.Sprintf("unusable trait image %s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("unusable trait image %s", e.Path)
	case KindInsufficientDiversity:
		return fmt.Sprintf("requested %d unique items but catalog only supports %d combinations", e.Requested, e.Capacity)
	case KindTimeout:
		return "job exceeded its deadline"
	case KindCancelled:
		return "job cancelled"
	case KindOutOfMemory:
		return "out of memory; retry with low_memory enabled"
	case KindIOError:
		if e.Err != nil {
			return fmt.Sprintf("io failure at %s: %v", e.Path, e.Err)
		}
		return fmt.Sprintf("io failure at %s", e.Path)
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether resubmitting the same job could plausibly succeed
// without changing its inputs.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindIOError
}

func NoLayers() *Error { return &Error{Kind: KindNoLayers} }

func EmptyLayer(name string) *Error { return &Error{Kind: KindEmptyLayer, Layer: name} }

func BadTraitImage(path string, cause error) *Error {
	return &Error{Kind: KindBadTraitImage, Path: path, Err: cause}
}

func InsufficientDiversity(requested int, capacity int64) *Error {
	return &Error{Kind: KindInsufficientDiversity, Requested: requested, Capacity: capacity}
}

func Timeout() *Error { return &Error{Kind: KindTimeout} }

func Cancelled() *Error { return &Error{Kind: KindCancelled} }

func OutOfMemory(cause error) *Error { return &Error{Kind: KindOutOfMemory, Err: cause} }

func IOError(path string, cause error) *Error {
	return &Error{Kind: KindIOError, Path: path, Err: cause}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report as io_error, the catch-all the host maps to a generic message.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIOError
}
