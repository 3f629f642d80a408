// Package auth provides passwordless authentication and authorization for
// coursebook.
//
// # Login Protocol
//
// Authentication is a two-phase email-token flow:
//
//  1. Login(email): an 8-digit challenge code is stored as a short-lived
//     EMAIL token (10 minutes) and mailed to the user. The user account is
//     created on first login.
//  2. Authenticate(email, code): the challenge is redeemed, single-use,
//     for a 12-hour API session token. The bearer credential returned to
//     the caller is the session token's ID signed with HS256.
//
// Redemption is atomic: creating the session and invalidating the
// challenge happen in one store transaction, so one challenge can never
// yield two sessions.
//
// # Authorization Gate
//
// Authorize(bearer) verifies the credential, loads the session token and
// its owner, and produces a Principal:
//
//   - TokenID, UserID
//   - IsAdmin: the owner's admin flag
//   - TeacherOf: course IDs where the owner holds a TEACHER enrollment,
//     joined fresh on every request
//
// The gate is fail-closed: any verification, shape, validity, expiry or
// store error maps to ErrUnauthorized. The internal reason is logged,
// never returned.
//
// # Access Checks
//
// RequireSelfOrAdmin, RequireAdmin and RequireTeacherOrAdmin are pure
// functions over a resolved Principal and return ErrForbidden on
// insufficient privilege. Handlers fetch the Principal with FromContext
// after Middleware has run.
//
// # Credential Format
//
// The bearer credential is an HS256 JWT whose payload is exactly
// {"tokenId": <id>} with no timestamp claims. Verification rejects any
// other signing algorithm. The signing secret is injected at boot; the
// shipped default is insecure and must be overridden in production.
package auth
