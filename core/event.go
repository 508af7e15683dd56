// Package core provides the fundamental building blocks of the wisp data mapper.
// This file defines lifecycle events emitted after eager operations
// complete, letting users observe the persistence layer without wiring
// behaviors into the dispatch registry.
package core

import "sync"

// Event represents a lifecycle event emitted by the mapper.
//
// Events fire after the eager operation variants complete successfully.
// Lazy sequences emit nothing: the mapper cannot know when a consumer is
// done pulling.
type Event string

const (
	// EventInsert is emitted after rows are inserted.
	EventInsert Event = "insert"
	// EventUpdate is emitted after rows are updated.
	EventUpdate Event = "update"
	// EventDelete is emitted after rows are deleted.
	EventDelete Event = "delete"
	// EventSelect is emitted after records are fetched.
	EventSelect Event = "select"
)

// EventHandler defines the callback signature for event listeners.
// The payload argument varies depending on the event type (InsertPayload,
// UpdatePayload, DeletePayload, SelectPayload).
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher used by the mapper.
//
// It provides a global subscription and emission mechanism for events.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	core.On(core.EventInsert, func(payload any) {
//	    if p, ok := payload.(core.InsertPayload); ok {
//	        log.Printf("%d %s rows inserted", p.Count, p.Model)
//	    }
//	})
func On(event Event, handler EventHandler) {
	globalDispatcher.mutex.Lock()
	defer globalDispatcher.mutex.Unlock()
	globalDispatcher.handlerList[event] = append(globalDispatcher.handlerList[event], handler)
}

// Emit triggers all registered handlers for the given Event.
//
// Handlers are executed asynchronously in separate goroutines.
// The payload type depends on the event being emitted.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if handlerList, ok := globalDispatcher.handlerList[event]; ok {
		for _, handler := range handlerList {
			go handler(payload)
		}
	}
}

// InsertPayload represents the payload passed to EventInsert handlers.
type InsertPayload struct {
	Model Tag
	Count int64
}

// UpdatePayload represents the payload passed to EventUpdate handlers.
type UpdatePayload struct {
	Model   Tag
	Changes Changes
	Count   int64
}

// DeletePayload represents the payload passed to EventDelete handlers.
type DeletePayload struct {
	Model Tag
	Count int64
}

// SelectPayload represents the payload passed to EventSelect handlers.
type SelectPayload struct {
	Model   Tag
	Records []Record
}
