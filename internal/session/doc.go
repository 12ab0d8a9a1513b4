// Package session tracks the signed-in user on top of the credential store
// and the authentication endpoints.
//
// A Facade moves through four states:
//
//	uninitialized ──Init──▶ checking ──▶ authenticated
//	                                 └─▶ anonymous
//
// Login, Register and Logout move it between authenticated and anonymous
// directly. Invalidate, wired to client.Client.OnAuthExpired through
// HandleAuthExpired, drops an authenticated session when its tokens could
// not be renewed.
//
// Profiles are sanitized before they are kept: password fields are dropped
// and the user's LLM key is wrapped in a Secret.
package session
