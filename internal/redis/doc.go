// Package redis implements the Redis-backed counter store.
//
// The counter lives under a single fixed key, written with plain GET/SET;
// the actor serializes all access so no Redis-side atomicity is needed.
package redis
