package bridge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrorKind classifies a failed script run.
type ErrorKind string

const (
	// KindPermissionDenied means the OS refused inter-application control.
	KindPermissionDenied ErrorKind = "permission_denied"
	// KindExecutionFailed covers every other script failure.
	KindExecutionFailed ErrorKind = "execution_failed"
)

// Error codes the scripting host returns when automation consent is missing.
const (
	CodeNotAuthorized      = -1743  // errAEEventNotPermitted
	CodePrivilegeViolation = -10004 // errAEPrivilegeError
	CodeCantGetObject      = -1728  // errAENoSuchObject
)

var permissionCodes = map[int]bool{
	CodeNotAuthorized:      true,
	CodePrivilegeViolation: true,
	CodeCantGetObject:      true,
}

// Sentinels for errors.Is.
var (
	ErrPermissionDenied = errors.New("bridge: permission denied")
	ErrExecutionFailed  = errors.New("bridge: execution failed")
	ErrClosed           = errors.New("bridge: executor closed")
)

// Error is a classified script failure.
type Error struct {
	Kind    ErrorKind
	Target  string
	Code    int
	Message string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPermissionDenied:
		return fmt.Sprintf("permission denied for %s (%d): %s", e.Target, e.Code, e.Message)
	default:
		if e.Code != 0 {
			return fmt.Sprintf("script failed for %s (%d): %s", e.Target, e.Code, e.Message)
		}
		return fmt.Sprintf("script failed for %s: %s", e.Target, e.Message)
	}
}

// Is lets errors.Is match the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Kind == KindPermissionDenied
	case ErrExecutionFailed:
		return e.Kind == KindExecutionFailed
	}
	return false
}

// IsPermissionDenied reports whether err is a permission-class bridge error.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// osascript reports failures as "<range>: execution error: <message> (<code>)".
var codePattern = regexp.MustCompile(`\((-?\d+)\)\s*$`)
var rangePattern = regexp.MustCompile(`^\d+:\d+:\s*`)

// Classify maps a code and message from the scripting host to an Error.
func Classify(target string, code int, message string) *Error {
	kind := KindExecutionFailed
	if permissionCodes[code] {
		kind = KindPermissionDenied
	}
	return &Error{Kind: kind, Target: target, Code: code, Message: message}
}

// ClassifyOutput builds an Error from osascript's stderr text. runErr is used
// as the message when stderr is empty (binary missing, killed, ...).
func ClassifyOutput(target, stderr string, runErr error) *Error {
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		if runErr != nil {
			msg = runErr.Error()
		} else {
			msg = "unknown error"
		}
		return Classify(target, 0, msg)
	}

	// Only the last line carries the execution error.
	lines := strings.Split(msg, "\n")
	last := strings.TrimSpace(lines[len(lines)-1])

	code := 0
	if m := codePattern.FindStringSubmatch(last); m != nil {
		code, _ = strconv.Atoi(m[1])
		last = strings.TrimSpace(strings.TrimSuffix(last, m[0]))
	}
	last = rangePattern.ReplaceAllString(last, "")
	last = strings.TrimPrefix(last, "execution error: ")
	return Classify(target, code, last)
}
