package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ParseError indicates a stack trace could not be parsed into frames
	ParseError ErrorCode = "PARSE_ERROR"
	// RepoNotFound indicates no local repository matches a remote or id
	RepoNotFound ErrorCode = "REPO_NOT_FOUND"
	// MissingRevision indicates a commit is not present locally, even after fetching
	MissingRevision ErrorCode = "MISSING_REVISION"
	// FrameResolution indicates a single stack frame could not be resolved
	FrameResolution ErrorCode = "FRAME_RESOLUTION"
	// InvalidArgument indicates a malformed request
	InvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// BackendUnavailable indicates git or ssh is missing or not runnable
	BackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	// Timeout indicates a subprocess timed out
	Timeout ErrorCode = "TIMEOUT"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
	// OpenRepository suggests opening or registering a repository
	OpenRepository FixActionType = "open-repository"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// StackError represents an error with code, message, and suggestions
type StackError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a StackError with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *StackError {
	return &StackError{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
		cause:          cause,
	}
}

// Error implements the error interface
func (e *StackError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *StackError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *StackError) WithDetails(details interface{}) *StackError {
	e.Details = details
	return e
}

// CodeOf returns the code of the first StackError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var se *StackError
	if errors.As(err, &se) {
		return se.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	MissingRevision: {
		{
			Type:        RunCommand,
			Command:     "git fetch --all",
			Safe:        true,
			Description: "Fetch every remote so the commit becomes available locally",
		},
	},
	RepoNotFound: {
		{
			Type:        OpenRepository,
			Command:     "stackresolve repos add <path>",
			Safe:        true,
			Description: "Register the repository the stack trace came from",
		},
	},
	BackendUnavailable: {
		{
			Type:        RunCommand,
			Command:     "git --version",
			Safe:        true,
			Description: "Check that git is installed and on PATH",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "stackresolve config show",
			Safe:        true,
			Description: "Review git.timeoutMs and git.fetchTimeoutMs",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
