// Package cookie carries admin tokens between client and server.
//
// Two cookies exist per session: the primary token cookie and a sibling with
// the "_refresh" suffix. Values are URL-encoded on write and decoded on read,
// so [Transport.WriteAuthCookie] followed by [Transport.ReadToken] returns
// the original token byte for byte.
//
// Token extraction prefers an "Authorization: Bearer" header over the cookie.
package cookie
