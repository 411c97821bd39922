package dateline

import (
	"log"
	"time"

	"hydrateMeAPI/internal/types/hydration"
)

// Service emits the new calendar date shortly after local midnight so the
// store can roll "today" over without polling.
type Service struct {
	loc  *time.Location
	now  func() time.Time
	out  chan hydration.Date
	stop chan struct{}
}

func New(loc *time.Location) *Service {
	return &Service{
		loc:  loc,
		now:  time.Now,
		out:  make(chan hydration.Date, 1),
		stop: make(chan struct{}),
	}
}

// Changes delivers one date per rollover. The channel is never closed while
// the service runs.
func (s *Service) Changes() <-chan hydration.Date {
	return s.out
}

// Start runs the rollover loop until Stop is called.
func (s *Service) Start() {
	go func() {
		for {
			now := s.now().In(s.loc)
			next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).AddDate(0, 0, 1)
			timer := time.NewTimer(next.Sub(now) + time.Second)
			select {
			case <-timer.C:
				date := hydration.DateOf(s.now().In(s.loc))
				log.Printf("Date rollover: %s", date)
				select {
				case s.out <- date:
				default:
				}
			case <-s.stop:
				timer.Stop()
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.stop)
}
