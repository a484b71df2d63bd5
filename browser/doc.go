// Package browser implements the leaf server backend that owns one live
// automation session. The automation engine itself sits behind the Driver and
// Page interfaces; tools in this package are thin, schema-described calls
// into that engine, composed into per-call Responses and optionally recorded
// to a session transcript.
package browser
