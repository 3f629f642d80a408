// Package api exposes the coursebook REST surface.
//
// Routing is a thin dispatch layer: handlers validate input shape, run
// the relevant access check against the Principal resolved by the auth
// middleware, and pass through to the store. All business rules about
// credentials live in the auth package.
//
// Public routes: GET / (status), POST /login, POST /authenticate.
// Everything else requires a bearer credential in the Authorization
// header.
package api
