// Package server provides the status HTTP server that runs beside a chat
// session.
//
// Endpoints:
//
//	GET /healthz  liveness probe
//	GET /status   session ID, provider, model and uptime
//	GET /metrics  Prometheus metrics
//	GET /event    Server-Sent Events stream of session events
//
// The /event stream accepts an optional "type" query parameter (repeatable)
// to receive only some event types. Each event is written as
//
//	event: message
//	data: {"type":"completion.received","properties":{...}}
//
// and a heartbeat comment is sent every SSEHeartbeatInterval. The server
// never exposes conversation content.
package server
