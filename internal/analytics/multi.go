package analytics

import "github.com/PizzaHomicide/muxbridge/internal/bridge"

// Multi fans every call out to each sink in order.  Nil sinks are skipped.
type Multi []bridge.Sink

func (m Multi) Init(sessionID string, cfg bridge.Config) {
	for _, s := range m {
		if s != nil {
			s.Init(sessionID, cfg)
		}
	}
}

func (m Multi) Emit(sessionID string, event bridge.EventName, payload bridge.Payload) {
	for _, s := range m {
		if s != nil {
			s.Emit(sessionID, event, payload)
		}
	}
}
