// Package authapi wires HTTP auth endpoints to the identity, verification,
// and session services.
//
// It owns the JSON request/response envelopes, the refresh-token cookie
// codec, and the bearer-token middleware that protects the rest of the API.
package authapi
