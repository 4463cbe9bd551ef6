// Package tailer runs one configured tail pipeline as a component.
//
// The Service opens the input file, builds a Broadcast over one
// Filter -> Sink branch per route, and drives it with a pipeline.Source
// until it is stopped or a Stage fails.
package tailer
