// Package feedapi wires the protected feed endpoints to the feed and
// identity stores. Every route here sits behind the bearer-token
// middleware; handlers read the caller from the request context.
package feedapi
