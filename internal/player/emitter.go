package player

import (
	"sync"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
)

// emitter is a synchronous named event registry.  Handlers run on the goroutine that fires the event.
type emitter struct {
	mu       sync.RWMutex
	handlers map[string][]bridge.Handler
}

// On registers h for the named event
func (e *emitter) On(event string, h bridge.Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string][]bridge.Handler)
	}
	e.handlers[event] = append(e.handlers[event], h)
}

func (e *emitter) fire(event string, data any) {
	e.mu.RLock()
	handlers := append([]bridge.Handler(nil), e.handlers[event]...)
	e.mu.RUnlock()

	for _, h := range handlers {
		h(data)
	}
}
