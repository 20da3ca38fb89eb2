// Package server provides the minimal interactive HTTP surface in front of
// pkg/planner.Driver. It supports:
//   - POST /api/v1/run to start a workflow from a JSON nodes/edges payload
//   - GET /api/v1/run/{id}/events to stream progress as Server-Sent Events
//   - Health check, readiness, and Prometheus metrics endpoints
//   - Request/response logging and graceful shutdown
package server
