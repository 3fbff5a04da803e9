package orchestration

import (
	"context"
	"slices"
	"sync"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

// subscriberBuffer bounds how far a subscriber may fall behind before it is dropped.
const subscriberBuffer = 64

// runStream fans the events of one live run out to its subscribers and keeps
// the history so late subscribers see the run from the start.
type runStream struct {
	mu      sync.Mutex
	history []models.StageEvent
	subs    map[chan models.StageEvent]struct{}
	closed  bool
}

func newRunStream() *runStream {
	return &runStream{subs: make(map[chan models.StageEvent]struct{})}
}

// publish records the event and forwards it. A subscriber whose buffer is
// full is disconnected; it can reconnect and replay.
func (r *runStream) publish(event models.StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.history = append(r.history, event)

	for ch := range r.subs {
		select {
		case ch <- event:
		default:
			delete(r.subs, ch)
			close(ch)
		}
	}

	if event.Terminal() {
		r.closed = true
		for ch := range r.subs {
			close(ch)
		}
		r.subs = nil
	}
}

// subscribe returns the events so far and, unless the run already ended,
// a channel carrying the rest.
func (r *runStream) subscribe() ([]models.StageEvent, chan models.StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history := slices.Clone(r.history)
	if r.closed {
		return history, nil
	}
	ch := make(chan models.StageEvent, subscriberBuffer)
	r.subs[ch] = struct{}{}
	return history, ch
}

func (r *runStream) unsubscribe(ch chan models.StageEvent) {
	if ch == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
		close(ch)
	}
}

// forward replays history and then relays live events until the run ends or ctx is done.
func forward(ctx context.Context, history []models.StageEvent, live <-chan models.StageEvent, done func()) <-chan models.StageEvent {
	out := make(chan models.StageEvent)
	go func() {
		defer close(out)
		defer done()

		for _, event := range history {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
		if live == nil {
			return
		}
		for {
			select {
			case event, ok := <-live:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
