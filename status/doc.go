// Package status serves a small HTTP API over a running tail pipeline.
//
// Endpoints:
//
//	GET  /health              aggregated component health, 503 when unhealthy
//	GET  /alive               liveness probe
//	GET  /info                build information
//	GET  /stats               Source run id, state, offset and delivered count
//	GET  /routes              configured routes
//	POST /routes/:name/fault  inject a fault into a route's sink (when enabled)
//
// The server speaks HTTP/1.1 and cleartext HTTP/2 on the same port.
package status
