package analytics

import (
	"sort"
	"sync"

	"github.com/PizzaHomicide/muxbridge/internal/bridge"
	"github.com/PizzaHomicide/muxbridge/internal/log"
)

// snapshotEvents are the events logged together with a pulled state snapshot
var snapshotEvents = map[bridge.EventName]bool{
	bridge.EventPlayerReady:     true,
	bridge.EventRenditionChange: true,
	bridge.EventEnded:           true,
	bridge.EventError:           true,
	bridge.EventDestroy:         true,
}

// LogSink writes every analytics event to the structured log
type LogSink struct {
	mu       sync.Mutex
	sessions map[string]bridge.Config
}

// NewLogSink creates a sink that logs through the default logger
func NewLogSink() *LogSink {
	return &LogSink{
		sessions: make(map[string]bridge.Config),
	}
}

func (s *LogSink) Init(sessionID string, cfg bridge.Config) {
	s.mu.Lock()
	s.sessions[sessionID] = cfg
	s.mu.Unlock()

	log.Info("Analytics session started", "session_id", sessionID, "data", cfg.Data, "debug", cfg.Debug)
}

func (s *LogSink) Emit(sessionID string, event bridge.EventName, payload bridge.Payload) {
	args := []any{"session_id", sessionID, "event", string(event)}
	args = append(args, payloadArgs(payload)...)

	// timeupdate fires several times a second
	if event == bridge.EventTimeUpdate {
		log.Trace("Analytics event", args...)
		return
	}

	cfg, ok := s.session(sessionID)
	if ok && snapshotEvents[event] && cfg.State != nil {
		args = append(args, "state", cfg.State.StateData().Payload())
	}
	if ok && cfg.PlayheadTime != nil {
		if ms, known := cfg.PlayheadTime.PlayheadTime(); known {
			args = append(args, "playhead_ms", ms)
		}
	}

	log.Info("Analytics event", args...)

	if event == bridge.EventDestroy {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	}
}

func (s *LogSink) session(sessionID string) (bridge.Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.sessions[sessionID]
	return cfg, ok
}

// payloadArgs flattens a payload into slog key/value pairs in a stable order
func payloadArgs(payload bridge.Payload) []any {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		args = append(args, k, payload[k])
	}
	return args
}
