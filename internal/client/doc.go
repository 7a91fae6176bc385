// Package client is a Go client for the postbox-gateway HTTP API.
//
// Logging in takes a registered user id and the matching private key:
//
//	c, _ := client.New("http://localhost:8080")
//	key, _ := client.LoadPrivateKey("private_key.pem")
//	tok, err := c.Login(ctx, 7, key)
//	msgs, err := c.Inbox(ctx)
//
// Login requests a nonce, signs its decoded bytes with SHA-256 (RSA PKCS#1
// v1.5 or ECDSA) and exchanges the signature for a bearer token, which the
// client then attaches to protected calls.
//
// Profile persists CLI state as TOML. Non-2xx responses surface as *APIError
// carrying the gateway's error message.
package client
