// Package api provides typed wrappers for the agent platform endpoints.
//
// Every wrapper goes through a Sender, normally *client.Client, so calls carry
// the current bearer token and recover from one expired-token 401. Resource
// endpoints wrap their payload as {"data": ...}; the wrappers unwrap it.
// The authentication endpoints return bare objects.
package api
