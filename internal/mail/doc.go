// Package mail delivers login challenge codes to users.
//
// With a SendGrid API key configured, codes go out through the SendGrid
// v3 mail API. Without one the debug sender logs the code instead, which
// keeps local development working with no mail credentials.
package mail
