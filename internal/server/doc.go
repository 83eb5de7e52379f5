// Package server implements the subscriber gateway using the Echo framework.
//
// Two kinds of inbound traffic, both routed to the single counter actor:
// WebSocket connections on /ws (registered as push subscribers) and one-shot
// increment/query calls on /counter. Health, metrics and version endpoints
// round out the surface.
package server
