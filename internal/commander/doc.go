// Package commander is the orchestration layer between the HTTP and CLI
// surfaces and the catalog, invoker, tracker and execution store.
//
// Execute and Retry always return a structured ExecutionResult: a command
// that cannot run is reported as a failed result, never as an error to the
// caller. Read operations (history, stats, activity) return store errors
// unchanged so the boundary can map them.
package commander
