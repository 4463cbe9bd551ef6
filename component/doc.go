// Package component defines the lifecycle interface shared by the parts of
// a tailpipe process and a Registry that drives them.
//
// Components are started in registration order and stopped in reverse
// order, so anything a component depends on must be registered before it.
//
// # Interfaces
//
//   - Component: Start/Stop/Health lifecycle
//   - Describable: optional self-description logged on start
package component
