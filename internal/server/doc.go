// Package server provides the HTTP surface of the voice bridge: the
// /upload endpoint the device talks to, plus monitoring and management
// endpoints (health, config, stats, Prometheus metrics).
package server
