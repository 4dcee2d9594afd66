// Package session keeps the browser's identity provider session alive across requests.
//
// Three pieces cooperate on every request:
//
//   - RefreshMiddleware runs before routing. When the access token cookie is provably
//     expired (checked locally with token.Codec) it exchanges the refresh token, rewrites the
//     request's cookies and queues Set-Cookie for the new pair.
//   - Resolver turns the request cookies into an Outcome by asking the identity provider,
//     refreshing once when the access token is rejected.
//   - Gate wraps handlers that need a user, turning a redirect Outcome into a login redirect
//     (an HX-Redirect for HTMX requests) that remembers where the user was going.
//
// No state is kept between requests; the identity provider owns every session.
package session
