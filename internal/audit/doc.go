// Package audit provides the asynchronous audit event pipeline used by the
// engine. Events are buffered through a dispatcher goroutine so emitting
// never blocks an authentication path; the dispatcher drains its buffer on
// close and counts drops when configured to shed load.
package audit
