// Package sweeper schedules the periodic expiration sweep.  Expiration
// is data, not a timer: a hold past its deadline has no effect until a
// transaction that locks the session runs the sweep.  The booking path
// sweeps lazily before every capacity check; this package adds the
// external periodic trigger so sessions with no booking traffic do not
// show phantom held seats forever.  Both call sites run the exact same
// sweep, so the engine's contract does not change.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/PouryDev/session-booking/internal/booking"
)

// Start creates a scheduler that runs the expiration sweep at the given
// interval and starts it.  The caller owns the returned scheduler and
// should Shutdown it on exit.
func Start(m *booking.Manager, interval time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			n, err := m.SweepExpired(ctx)
			if err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
				return
			}
			if n > 0 {
				log.Printf("sweeper: expired %d reservations", n)
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}
