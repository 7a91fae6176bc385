// Package gateway wires the postbox-gateway HTTP server.
//
// # Overview
//
// Gateway owns the store, the nonce registry, the token service and the
// authenticator, and exposes them over a net/http ServeMux:
//
//	GET    /health               liveness
//	GET    /health/ready         database reachable
//	GET    /auth/nonce/{userId}  issue a login challenge
//	POST   /auth/token           redeem a signed challenge for a token
//	POST   /user/create          register a user and public key
//	GET    /users/{id}           public profile (bearer)
//	GET    /user?name=           users with an exact name (bearer)
//	GET    /msg?after=&limit=    caller's inbox, one page (bearer)
//	POST   /msg                  send a message (bearer)
//	DELETE /msg/{id}             delete from caller's inbox (bearer)
//
// All bodies are JSON. Errors are {"error": "<message>"}. Login failures are
// 400 with exactly one of "unknown user", "invalid or expired nonce" or
// "invalid signature".
//
// # Listeners
//
// By default the server listens on server.http_addr. With tailscale.enabled
// it joins the tailnet through tsnet and listens on :80, or on :443 using the
// node certificate when tailscale.https is set.
//
// # Lifecycle
//
//	gw, err := gateway.New(cfg, logger)
//	err = gw.Run(ctx) // blocks until ctx is canceled
//
// Run shuts the server down gracefully and closes the nonce registry and the
// store before returning.
package gateway
