// Package config handles configuration loading for postbox-gateway.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from POSTBOX_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/postbox/gateway.yaml
//  3. ~/.config/postbox/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${POSTBOX_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  cors_origins: ["https://postbox.example"]
//
//	tailscale:
//	  enabled: false
//	  hostname: "postbox"
//	  auth_key: "${TS_AUTHKEY}"
//	  https: false
//
//	database:
//	  path: "/var/lib/postbox/postbox.db"
//
//	auth:
//	  jwt_secret: "${POSTBOX_JWT_SECRET}"  # at least 32 bytes
//	  token_ttl: "15m"
//	  issuer: "postbox-gateway"
//	  nonce_ttl: "5m"
//	  nonce_capacity: 100000
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text or json
//
// Durations use time.ParseDuration syntax. Empty fields take the Default*
// constants; Validate runs after defaults are applied.
package config
