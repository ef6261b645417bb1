package appreciation

import (
	"sync"
	"time"
)

// Service detects, rate-limits and phrases appreciation per user
type Service struct {
	detector  *Detector
	generator *Generator
	now       func() time.Time

	// last appreciation per user, to avoid spam
	mu   sync.Mutex
	last map[int64]time.Time
}

// NewService creates a service with random template selection
func NewService() *Service {
	return newService(NewGenerator(nil), time.Now)
}

func newService(g *Generator, now func() time.Time) *Service {
	return &Service{
		detector:  NewDetector(),
		generator: g,
		now:       now,
		last:      make(map[int64]time.Time),
	}
}

// CheckAttempt returns the message for a finished attempt, or nil when
// nothing is worth showing right now
func (s *Service) CheckAttempt(userID int64, r Result) *Message {
	best := s.detector.SelectBest(s.detector.Detect(r))
	if best == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.last[userID]; ok {
		minutes := int(s.now().Sub(last).Minutes())
		if !ShouldAppreciate(minutes, Priority(best.Type)) {
			return nil
		}
	}

	msg := s.generator.Generate(best)
	if msg != nil {
		s.last[userID] = s.now()
	}
	return msg
}
