// Package session is the client-side counterpart of the CodeXi auth API.
//
// # Overview
//
// The package provides:
//  1. An HTTP client for the auth and profile endpoints (see API) that maps
//     error envelopes onto sentinel errors.
//  2. A session controller (see Controller) that owns the current identity
//     snapshot and token pair, persists tokens in a TokenStore, and refreshes
//     an expired access token transparently, at most once per failed call.
//  3. Token stores: FileStore for the CLI, MemoryStore for tests and
//     short-lived processes.
//
// # Lifecycle
//
// A Controller starts Uninitialized. Bootstrap moves it through Bootstrapping
// to Authenticated or Anonymous; Login and Logout switch between the latter
// two. Concurrent refreshes are coalesced into one request.
//
// # Error Handling
//
// Callers match errors with errors.Is: ErrUnauthorized (the session is gone
// and the user must sign in again) and ErrUnavailable (timeouts and server
// failures; state is kept and the call may be retried). Other API failures
// surface as *APIError carrying the status and server message.
package session
