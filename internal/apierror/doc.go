// Package apierror defines the error kinds surfaced by the agentdesk client
// packages: transport failures, non-success responses, and authentication
// outcomes. The request dispatcher and the stream consumer both return these
// so callers can branch with errors.Is and errors.As regardless of which path
// produced the failure.
package apierror
