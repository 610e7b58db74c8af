package server

import "sync"

// Hub fans encoded frames out to subscribers. A subscriber that falls
// behind only ever holds the newest frame, so publishing never blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
	last []byte
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []byte]struct{})}
}

// Subscribe returns a channel of frames and a func that unsubscribes and
// closes it.
func (h *Hub) Subscribe() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = frame
	for ch := range h.subs {
		select {
		case ch <- frame:
		default:
			// Replace the stale frame.
			select {
			case <-ch:
			default:
			}
			ch <- frame
		}
	}
}

// Last is the most recently published frame, or nil.
func (h *Hub) Last() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
