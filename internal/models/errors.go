package models

import "fmt"

// ErrorKind is the closed taxonomy of failure classes a DocumentFile can be
// tagged with. The tag drives retry/fallback policy and is the only failure
// detail surfaced to external callers (full diagnostics stay in logs).
type ErrorKind string

const (
	// ErrorKindValidation covers malformed requests, unsupported document
	// types, oversize files, and disallowed archive contents. Surfaced to
	// the caller directly; never retried.
	ErrorKindValidation ErrorKind = "validation"

	// ErrorKindUpstreamTransient covers network timeouts and provider
	// 5xx/429 responses. Retried with exponential backoff and jitter up to
	// a bounded attempt count.
	ErrorKindUpstreamTransient ErrorKind = "upstream_transient"

	// ErrorKindUpstreamPermanent covers provider 4xx responses (bad input,
	// auth failure). The file fails immediately, no retry.
	ErrorKindUpstreamPermanent ErrorKind = "upstream_permanent"

	// ErrorKindExtractorParse covers an LLM response that is not valid JSON
	// or fails schema validation. One retry is attempted before this is
	// recorded as an extractor failure for merge-policy purposes.
	ErrorKindExtractorParse ErrorKind = "extractor_parse"

	// ErrorKindResource covers oversized input detected by the PDF Chunker's
	// pre-flight sizing policy; the router refuses in-memory processing and
	// the pipeline falls back to chunking.
	ErrorKindResource ErrorKind = "resource"

	// ErrorKindInternal covers bug-class errors. Logged with full context;
	// the file is marked failed with this tag.
	ErrorKindInternal ErrorKind = "internal"

	// ErrorKindCancelled marks a file terminated at a safe boundary because
	// the owning batch's cancel flag was honored.
	ErrorKindCancelled ErrorKind = "cancelled"
)

// Retryable reports whether an error of this kind should be retried with
// backoff rather than failed fast.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindUpstreamTransient
}

// TaggedError wraps an error with an ErrorKind so retry/fallback logic can
// branch on the tag without parsing error strings.
type TaggedError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *TaggedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TaggedError) Unwrap() error {
	return e.Cause
}

// NewTaggedError constructs a TaggedError wrapping cause, which may be nil.
func NewTaggedError(kind ErrorKind, message string, cause error) *TaggedError {
	return &TaggedError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *TaggedError, defaulting to ErrorKindInternal otherwise.
func KindOf(err error) ErrorKind {
	var tagged *TaggedError
	if err == nil {
		return ""
	}
	if asTagged(err, &tagged) {
		return tagged.Kind
	}
	return ErrorKindInternal
}

func asTagged(err error, target **TaggedError) bool {
	for err != nil {
		if t, ok := err.(*TaggedError); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
