// Package session is the session and authorization engine of the platform client
// (chat, document Q&A, image generation). It acquires, persists and invalidates
// credentials, authorizes every outgoing request, and gates navigation on
// authentication state, role and permission.
//
// Components:
//   - CredentialStore persists the access token, refresh token and user record as a
//     unit on top of a Storage (memory, file, or the SQL storage in repository/).
//     Load never fails: partial or corrupt records read as absent.
//   - Transport is the request pipeline. It attaches the bearer token and reports
//     401s, and 403s carrying TOKEN_BLACKLISTED, USER_DEACTIVATED or TOKEN_INVALID,
//     as an InvalidationEvent. It never retries and never navigates.
//   - Manager is the session state machine (Bootstrapping, Unauthenticated,
//     Authenticating, Authenticated). Every mutation persists before it commits,
//     and results that arrive after a logout are dropped.
//   - Redirector is the single listener that turns a forced logout into navigation
//     to the login page.
//   - Guard decides render, redirect, fallback or loading for a page's declared
//     Requirements. HasRole, HasExactRole and Can are the shared predicates.
//
// The oauth package completes provider redirects exactly once, middleware/guard
// applies the Guard to go-router routes, and NewEngine wires everything together.
//
// Activity sinks:
//   - ActivitySink receives login, logout, forced logout and user update events.
//     Sinks run best effort (errors are logged) so they never block the session.
package session
