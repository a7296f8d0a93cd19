package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfig
	KindFetch
	KindNoArticle
	KindProcessing
	KindIndex
	KindGenerate
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindFetch:
		return "fetch"
	case KindNoArticle:
		return "no_article"
	case KindProcessing:
		return "processing"
	case KindIndex:
		return "index"
	case KindGenerate:
		return "generate"
	default:
		return "unknown"
	}
}

// Error is the single error type surfaced to the interface layer.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

// NewError builds an Error of the given kind wrapping err (which may be nil).
func NewError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
