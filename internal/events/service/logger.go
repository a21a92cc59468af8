package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/autoinvoice/autoinvoice/internal/events/domain"
)

// Logger is a Publisher that writes events to the audit log stream.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Str("stream", "audit").Logger()}
}

func (l *Logger) Publish(ctx context.Context, e domain.Event) error {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	ev := l.log.Info().
		Str("type", e.Type).
		Str("owner_id", e.OwnerID.String()).
		Time("ts", e.Time)
	if e.SubjectID != uuid.Nil {
		ev = ev.Str("subject_id", e.SubjectID.String())
	}
	if len(e.Meta) > 0 {
		ev = ev.Interface("meta", e.Meta)
	}
	ev.Msg("event")
	return nil
}

// Recorder keeps published events in memory. Tests use it to assert on audit output.
type Recorder struct {
	mu     sync.Mutex
	Events []domain.Event
}

func (r *Recorder) Publish(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
