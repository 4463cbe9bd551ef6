// Package output opens the writers Sinks write to.
//
// Targets are strings taken from route configuration:
//
//	stdout            process standard output
//	stderr            process standard error
//	file:/var/log/x   file opened for append, created if missing
//	/var/log/x        same as file:/var/log/x
//	nats:alerts.web   each record published as one NATS message
//
// Every handle an Opener returns is wrapped in Synchronized and shared by
// target, so routes writing to the same target never interleave partial
// records.
package output
