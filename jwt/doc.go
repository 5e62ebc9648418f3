// Package jwt is the built-in token issuer: it mints and parses the signed
// access and refresh token strings the engine's lifecycle layer manages.
// Claims carry the subject id, the token-family id, and a token-type tag;
// everything that happens to a token after minting (slots, blacklist,
// rotation, revocation) is the engine's concern, not this package's.
package jwt
