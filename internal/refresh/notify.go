package refresh

import "github.com/guttosm/cryptopulse/internal/domain/models"

const listenerBuffer = 8

// Subscribe returns a channel receiving the state of every refresh attempt
// and a function that unsubscribes. Slow listeners miss updates rather
// than stall the scheduler.
func (s *Scheduler) Subscribe() (<-chan models.DerivationState, func()) {
	ch := make(chan models.DerivationState, listenerBuffer)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
	}
}

func (s *Scheduler) broadcast(st models.DerivationState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for ch := range s.listeners {
		select {
		case ch <- st:
		default:
		}
	}
}
