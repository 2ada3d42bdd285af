// Package events carries study-session notifications to interested
// components without coupling the session controller to them.
//
// The controller emits an ItemRated event after every rating and a
// SessionCompleted event once per session, when its position reaches the end
// of the queue. A Dispatcher hands each event synchronously to the handlers
// subscribed to its type: the event log, the Prometheus counters, and in
// tests a Recorder.
package events
