// Package auth provides pluggable authentication for the gateway.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (principal found), No (credentials
// invalid), or Abstain (can't handle). When every authenticator abstains,
// the anonymous-access policy decides.
//
// Auth is implemented as HTTP middleware, keeping it decoupled from handler
// logic. Identity resolution also injects the resolved permission set into
// the request context so access checks never touch the user store.
package auth
