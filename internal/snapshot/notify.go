package snapshot

import "sync"

// subscribers fans snapshot ETags out to registered channels. Publishing
// never blocks on a slow listener.
type subscribers struct {
	mu  sync.Mutex
	chs map[chan string]struct{}
}

func (s *subscribers) subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)
	s.mu.Lock()
	if s.chs == nil {
		s.chs = make(map[chan string]struct{})
	}
	s.chs[ch] = struct{}{}
	s.mu.Unlock()

	unsub := func() {
		s.mu.Lock()
		if _, ok := s.chs[ch]; ok {
			delete(s.chs, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, unsub
}

func (s *subscribers) publish(etag string) {
	s.mu.Lock()
	for ch := range s.chs {
		select {
		case ch <- etag:
		default:
		}
	}
	s.mu.Unlock()
}
