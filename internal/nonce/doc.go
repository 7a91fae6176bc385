// Package nonce tracks the single-use challenges handed out during
// challenge/response login.
//
// Each user has at most one outstanding challenge. Issuing a new one
// replaces the old value, and Consume removes the value atomically on a
// match, so a signed challenge can be redeemed at most once. Challenges
// expire after a configurable TTL and the registry is bounded in size.
package nonce
