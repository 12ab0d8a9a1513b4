// Package client provides the authenticated request dispatcher for the
// agentdesk API.
//
// # Overview
//
// Every call made through a Client carries the bearer credential currently
// held by its credential.Store. The dispatcher recovers from exactly one
// failure class on its own: a 401 that a token refresh can fix.
//
//	caller ──Send──▶ Client ──attempt──▶ API
//	                   │  401
//	                   ▼
//	              Coordinator ──refresh──▶ /auth/refresh-token
//	                   │  new credential (or AuthExpiredError)
//	                   ▼
//	              replay once ──▶ API
//
// # Refresh Coordination
//
// The Coordinator guarantees that concurrent 401s trigger a single refresh
// call. Callers that arrive while a renewal is in flight wait on it and
// receive its result. Callers whose 401 was for a token that has since been
// replaced skip the refresh entirely and replay with the current credential.
//
// When the refresh fails, or no refresh token is stored, the store is cleared
// and every waiter receives *apierror.AuthExpiredError. Listeners registered
// with OnAuthExpired are notified asynchronously.
//
// # Request Bodies
//
// Send picks the encoding from the body's type:
//
//   - url.Values is sent form-encoded
//   - *Multipart is sent as multipart/form-data
//   - json.RawMessage and []byte are sent verbatim as JSON
//   - anything else is marshalled to JSON
//
// Bodies are serialized once so that the replay after a refresh sends the
// same bytes.
//
// # Errors
//
// A non-2xx reply is returned as *apierror.RequestError with the server's
// message. A transport failure is *apierror.NetworkError. Neither is retried.
//
// # Usage
//
//	store, _ := credential.NewFileStore("")
//	c, err := client.New("http://localhost:8000", store,
//	    client.WithLogger(logging.Logger("client")),
//	)
//	if err != nil {
//	    return err
//	}
//	agents, err := client.SendJSON[[]Agent](ctx, c, http.MethodGet, "/agent/list", nil)
package client
