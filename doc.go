// Package identity is a small identity service: a user store keyed by a
// case-insensitive email, two token mechanisms and a fixed access policy
// over a users resource.
//
// Store:
//   - IdentityStore validates and normalizes input, hashes passwords with
//     bcrypt and persists users through bun. Self registration always
//     yields an active, unprivileged user; CreateSuperuser is the only path
//     that grants staff and superuser, and SetCapabilities is the only path
//     that changes them afterwards.
//   - Migrations are embedded per dialect and applied through
//     go-persistence-bun for SQLite and Postgres alike.
//
// Tokens:
//   - OpaqueTokens keeps one random 40 hex key per user. Issuing is
//     idempotent, including under concurrent logins.
//   - TokenService signs short lived access tokens and longer lived refresh
//     tokens (HMAC, keyed by kid). Validation is stateless.
//
// HTTP:
//   - RouteAuthenticator resolves the actor from either
//     "Authorization: Token <key>" or "Authorization: Bearer <jwt>".
//   - Controller mounts the login, refresh and verify endpoints and the
//     users resource, consulting Policy before every users operation.
//     Responses use a {success, data, message} envelope, except a
//     successful DELETE, which is a bare 204 with no body.
//   - Routes are registered on a go-router Router and served through its
//     fiber adapter.
package identity
