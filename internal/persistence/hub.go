package persistence

import "sync"

// hub fans a stream of values out to per-topic subscribers. Both store
// implementations use it to back their Watch methods: all writes happen in
// this process, so change notification is in-process fanout rather than a
// database-side channel.
type hub[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan T
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[string]map[int]chan T)}
}

// subscribe registers a buffered channel for the topic and primes it with the
// current value. The returned cancel is safe to call more than once.
func (h *hub[T]) subscribe(topic string, current T) (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan T, 16)
	ch <- current

	if h.subs[topic] == nil {
		h.subs[topic] = make(map[int]chan T)
	}
	h.subs[topic][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subs[topic]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(h.subs, topic)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

// publish delivers the value to every subscriber of the topic. A subscriber
// that has fallen 16 values behind loses the oldest one; watchers only care
// about the latest state.
func (h *hub[T]) publish(topic string, value T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[topic] {
		select {
		case ch <- value:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- value
		}
	}
}

// topics returns every topic that currently has subscribers.
func (h *hub[T]) topics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for topic := range h.subs {
		out = append(out, topic)
	}
	return out
}
