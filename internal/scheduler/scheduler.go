package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"dispatch-routing-service/internal/services"
)

// Per-run deadline for one sweep pass.
const sweepTimeout = 5 * time.Minute

// Sweeper runs the periodic backfill sweep (seed stale stops, then process
// due jobs) on a cron schedule.
type Sweeper struct {
	cron *cron.Cron
}

// New schedules sweeps for each tenant on the given cron expression.
func New(schedule string, scanner *services.BackfillScanner, tenants []string, seedLimit, processLimit int) (*Sweeper, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		for _, tenant := range tenants {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			report, err := scanner.Sweep(ctx, tenant, seedLimit, processLimit)
			cancel()
			if err != nil {
				log.Printf("scheduled sweep failed: tenant=%s err=%v", tenant, err)
				continue
			}
			log.Printf(
				"scheduled sweep: tenant=%s scanned=%d enqueued=%d claimed=%d completed=%d retried=%d failed=%d",
				tenant, report.Seed.Scanned, report.Seed.Enqueued,
				report.Process.Claimed, report.Process.Completed,
				report.Process.Retried, report.Process.Failed,
			)
		}
	})
	if err != nil {
		return nil, err
	}

	return &Sweeper{cron: c}, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
