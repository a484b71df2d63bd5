// Package mcpserver turns a ServerBackend into a live MCP connection.
//
// A backend advertises an immutable tool catalog and executes named tools
// against pre-validated arguments. Everything protocol-shaped (listing,
// argument validation, error envelopes, lifecycle notifications and the
// liveness heartbeat) lives here, on top of the MCP SDK's transport and
// JSON-RPC machinery.
//
// Conventions used throughout this package:
//   - One backend instance serves exactly one connection. Backends are
//     produced by a BackendFactory so that no state leaks across sessions.
//   - Tool failures of any kind (unknown name, invalid arguments, execution
//     errors) are reported as isError tool results, never as protocol faults.
//     The connection stays open; only a failed heartbeat probe or an explicit
//     close tears it down.
//   - Lifecycle hooks are additive: OnInitialized and OnClose append to
//     ordered observer lists and never replace earlier registrations.
package mcpserver
