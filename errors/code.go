package errors

import (
	"net/http"
)

func BadRequest() ErrorEnricher         { return WithCode(http.StatusBadRequest) }
func Forbidden() ErrorEnricher          { return WithCode(http.StatusForbidden) }
func NotFound() ErrorEnricher           { return WithCode(http.StatusNotFound) }
func ServiceUnavailable() ErrorEnricher { return WithCode(http.StatusServiceUnavailable) }
func BadGateway() ErrorEnricher         { return WithCode(http.StatusBadGateway) }
func Internal() ErrorEnricher           { return WithCode(http.StatusInternalServerError) }

// WithKind tags an error with one of the error kinds below. It does not change the HTTP
// code by itself; pair it with one of the code enrichers above.
func WithKind(kind string) ErrorEnricher {
	return func(err error) error {
		switch err := err.(type) {
		case *myError:
			err.kind = kind
			return err
		}
		return &myError{msg: err.Error(), code: DefaultCode, kind: kind}
	}
}

// Kind error kinds, matching the policy table in the error handling design.
const (
	KindValidation      = "ValidationError"
	KindEmbeddingTimeout = "EmbeddingTimeout"
	KindEngine          = "EngineError"
	KindStore           = "StoreError"
	KindCacheIO         = "CacheIO"
	KindCancelled       = "Cancelled"
	KindNotFound        = "NotFound"
)

// ValidationError is a 400 tagged with KindValidation.
func ValidationError(msg string, cause error) error {
	fs := []ErrorEnricher{BadRequest(), WithKind(KindValidation)}
	if cause != nil {
		fs = append(fs, WithCause(cause))
	}
	return New(msg, fs...)
}

// EmbeddingUnavailable is a 503 tagged with KindEmbeddingTimeout, matching spec.md's
// "EmbeddingUnavailable" failure name for the search path.
func EmbeddingUnavailable(cause error) error {
	return New("embedding service unavailable", ServiceUnavailable(), WithKind(KindEmbeddingTimeout), WithCause(cause))
}

// EngineFailure is a 502 tagged with KindEngine.
func EngineFailure(msg string, cause error) error {
	return New(msg, BadGateway(), WithKind(KindEngine), WithCause(cause))
}

// StoreFailure is tagged with KindStore; callers choose whether to surface it or swallow it,
// since store errors during hydration/back-sync are policy-dependent (see design notes).
func StoreFailure(msg string, cause error) error {
	return New(msg, Internal(), WithKind(KindStore), WithCause(cause))
}

// CacheFailure is tagged with KindCacheIO; callers decide whether it is fatal. Checkpoint
// loads and result-cache operations log and continue, while a failed final checkpoint
// save ends Phase 1 with this error.
func CacheFailure(msg string, cause error) error {
	return New(msg, WithKind(KindCacheIO), WithCause(cause))
}

// DocumentNotFound is a 404 tagged with KindNotFound.
func DocumentNotFound(msg string) error {
	return New(msg, NotFound(), WithKind(KindNotFound))
}

// IsCancelled reports whether err (or its cause chain) is a context cancellation.
func IsCancelled(err error) bool {
	return Kind(err) == KindCancelled
}

// Kind returns the error kind tagged by WithKind, walking the cause chain if the
// outermost error was not itself tagged. Returns "" if no kind is found anywhere.
func Kind(err error) string {
	for err != nil {
		myErr, ok := err.(*myError)
		if !ok {
			return ""
		}
		if myErr.kind != "" {
			return myErr.kind
		}
		if myErr.cause == nil {
			return ""
		}
		err = myErr.cause
	}
	return ""
}
