/*
Package event provides the in-process pub/sub bus for execution lifecycle events.

Publishers emit events and subscribers react to them without direct
dependencies. Notifications, metrics and the SSE stream all hang off the bus;
the command service never waits on any of them beyond PublishSync.

# Event Types

Execution Events:
  - execution.started: a command invocation began
  - execution.completed: the command exited with code 0
  - execution.failed: the command exited non-zero, timed out or could not start

Catalog Events:
  - catalog.reloaded: command definitions were reloaded from disk

Maintenance Events:
  - records.cleaned: execution records were deleted by cleanup

# Basic Usage

	unsubscribe := bus.Subscribe(event.ExecutionFailed, func(e event.Event) {
		data := e.Data.(event.ExecutionFinishedData)
		logging.Warn().Str("command", data.Command).Msg("command failed")
	})
	defer unsubscribe()

	bus.Publish(event.Event{Type: event.ExecutionStarted, Data: data})

Subscribers registered with Subscribe and SubscribeAll receive the typed
value. Every event is also mirrored as a JSON watermill message on Topic, so
consumers that only need the wire form (the SSE endpoint) can read it with
Messages.

# Subscriber Safety

With PublishSync subscribers run in the publisher's goroutine. They must
return quickly and must not publish from inside the callback.
*/
package event
