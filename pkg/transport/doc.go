// Package transport provides HTTP-level middleware shared by the
// gateway's handlers: panic recovery, request ID propagation, and
// structured request logging.
//
// Middleware composes front to back:
//
//	h := transport.Chain(
//		transport.Recovery(),
//		transport.RequestID(),
//		transport.Logging(logger),
//	)(mux)
//
// Recovery sits outermost so panics anywhere in the chain produce a
// JSON error response instead of a dropped connection.
package transport
