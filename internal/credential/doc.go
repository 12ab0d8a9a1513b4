// Package credential holds the access/refresh token pair for a session.
//
// The Store interface is the only place credentials are persisted. It is
// injected into the request dispatcher, the stream consumer and the session
// facade at construction; nothing in agentdesk keeps a package-level copy.
//
// Two implementations are provided:
//   - MemoryStore keeps the credential for the lifetime of the process.
//   - FileStore persists it to a 0600 JSON file and can Watch that file so a
//     login or logout performed by another process is picked up.
package credential
