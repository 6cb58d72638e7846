// Package server implements the core HTTP and WebSocket relay for Parley.
//
// The implementation is organized into specialized files for configuration,
// hub and session management, event routing, clients, and HTTP handlers to
// keep the codebase maintainable and testable as the project grows.
package server
