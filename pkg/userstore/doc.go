// Package userstore defines the durable user record, the store contract
// its backends implement, and the admin-rescue invariant checks that
// keep at least one reachable administrator in the store.
//
// Backends live in sub-packages: file (JSON document, the default),
// memory (tests and development), and postgres (pgx connection pool).
// Users are deactivated rather than deleted; physical removal is an
// explicit, separate operation.
package userstore
