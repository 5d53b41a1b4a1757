// Package api defines the wire types of the pforte authentication gateway:
// the auth-status document consumed by the pre-bootstrap gate, the login
// request/response shapes, and the structured error envelope with stable
// error codes.
//
// These types are shared between the HTTP transport and the gate state
// machine and carry no behavior beyond serialization.
package api
