package cli

import (
	"context"
	"errors"
	"fmt"

	"agentdesk/internal/apierror"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates the command needs a session and none is
	// available: nobody signed in, the session expired, or the server
	// rejected the credentials with 401.
	ExitCodeAuthRequired = 2
	// ExitCodeUnavailable indicates the server could not be reached.
	ExitCodeUnavailable = 3
)

// ExitCode maps err to the exit code used for scripting and automation.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var authRequired *apierror.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authExpired *apierror.AuthExpiredError
	if errors.As(err, &authExpired) {
		return ExitCodeAuthRequired
	}

	if errors.Is(err, apierror.ErrUnauthorized) {
		return ExitCodeAuthRequired
	}

	var netErr *apierror.NetworkError
	if errors.As(err, &netErr) {
		return ExitCodeUnavailable
	}

	return ExitCodeError
}

// FormatError formats an error message for CLI output, adding guidance for
// failures the user can act on.
func FormatError(err error) string {
	if errors.Is(err, context.Canceled) {
		return "Error: interrupted"
	}

	var netErr *apierror.NetworkError
	if errors.As(err, &netErr) {
		hint := "Check that the server is running and that --base-url points at it."
		if netErr.Type == apierror.NetworkErrorTLS {
			hint = "The server certificate could not be verified."
		}
		return fmt.Sprintf("Error: %s: %v\n\n%s", netErr.Type, netErr.Err, hint)
	}

	var reqErr *apierror.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return fmt.Sprintf("Error: %s (status %d)", reqErr.Message, reqErr.Status)
	}

	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
