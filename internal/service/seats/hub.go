package seats

import "sync"

// Hub fans seat change notifications out to local subscribers, keyed by
// performance date. Slow subscribers miss notifications rather than block
// the publisher.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives a value whenever the seats of
// date change, and a cancel func that must be called to unsubscribe.
func (h *Hub) Subscribe(date string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[date] == nil {
		h.subs[date] = make(map[chan struct{}]struct{})
	}
	h.subs[date][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[date], ch)
			if len(h.subs[date]) == 0 {
				delete(h.subs, date)
			}
			h.mu.Unlock()
		})
	}

	return ch, cancel
}

func (h *Hub) Publish(date string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[date] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Len(date string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[date])
}
