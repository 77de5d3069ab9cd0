package contract

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure independently of the concrete error value.
type ErrorKind string

// All error kinds.
const (
	ValidationError  ErrorKind = "validation"
	NotFoundError    ErrorKind = "not_found"
	UnsupportedError ErrorKind = "unsupported"
	LockError        ErrorKind = "lock"
	CancelledError   ErrorKind = "cancelled"
	FailureError     ErrorKind = "failure"
)

// Stable error codes.
const (
	CodeBadURL             = "BAD_URL"
	CodeChecksumMismatch   = "CHECKSUM_MISMATCH"
	CodeBadRevision        = "CLIENT_BAD_REVISION"
	CodeBadLogMessage      = "CL_BAD_LOG_MESSAGE"
	CodeCancelled          = "CANCELLED"
	CodeCommitFailed       = "COMMIT_FAILED"
	CodeDuplicateCommitURL = "CLIENT_DUPLICATE_COMMIT_URL"
	CodeEntryMissingURL    = "ENTRY_MISSING_URL"
	CodeEntryNotFound      = "ENTRY_NOT_FOUND"
	CodeFSAlreadyExists    = "FS_ALREADY_EXISTS"
	CodeFSNoSuchRevision   = "FS_NO_SUCH_REVISION"
	CodeFSNotFound         = "FS_NOT_FOUND"
	CodeIllegalTarget      = "ILLEGAL_TARGET"
	CodeLockOwnerMismatch  = "FS_LOCK_OWNER_MISMATCH"
	CodeMergeInfoParse     = "MERGE_INFO_PARSE_ERROR"
	CodeNoLockToken        = "FS_NO_LOCK_TOKEN"
	CodeNodeUnknownKind    = "NODE_UNKNOWN_KIND"
	CodePathAlreadyLocked  = "FS_PATH_ALREADY_LOCKED"
	CodePropertyName       = "CLIENT_PROPERTY_NAME"
	CodeTxnOutOfDate       = "FS_TXN_OUT_OF_DATE"
	CodeUnsupportedFeature = "UNSUPPORTED_FEATURE"
	CodeWCCorrupt          = "WC_CORRUPT"
	CodeWCFoundConflict    = "WC_FOUND_CONFLICT"
	CodeWCLocked           = "WC_LOCKED"
	CodeWCNotLocked        = "WC_NOT_LOCKED"
	CodeWCPathNotFound     = "WC_PATH_NOT_FOUND"
)

// Error carries a human-readable message together with a stable kind and code.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation  = &Error{Kind: ValidationError}
	ErrNotFound    = &Error{Kind: NotFoundError}
	ErrUnsupported = &Error{Kind: UnsupportedError}
	ErrLock        = &Error{Kind: LockError}
	ErrCancelled   = &Error{Kind: CancelledError}
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind, and by code when the target has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// NewError creates an error of the given kind and code.
func NewError(kind ErrorKind, code string, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with a message while keeping its kind and code.
func WrapError(err error, format string, args ...any) *Error {
	return &Error{Kind: KindOf(err), Code: CodeOf(err), Message: fmt.Sprintf(format, args...), Err: err}
}

// CommitFailed wraps a commit-time failure the way users expect to read it.
func CommitFailed(err error) error {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	if code == "" {
		code = CodeCommitFailed
	}
	return &Error{Kind: KindOf(err), Code: code, Message: "Commit failed (details follow)", Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Kind != "" {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CancelledError
	}
	return FailureError
}

// CodeOf returns the code of the outermost classified error in the chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancelled
	}
	return ""
}

// IsCancelled reports whether err came from a cancellation request.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// CheckCancelled polls the context and converts a cancellation into a classified error.
func CheckCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &Error{Kind: CancelledError, Code: CodeCancelled, Message: "Operation cancelled", Err: err}
	}
	return nil
}
