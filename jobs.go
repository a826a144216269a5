package girder

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a scheduled unit of background work. Spec uses the standard cron
// expression format (e.g. "*/5 * * * *" or "@every 30s").
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler is implemented by apps that want background jobs. Run starts
// the returned jobs after OnStart succeeds and stops them before OnStop.
// Apps with no routes can rely on jobs alone (background mode).
type Scheduler interface {
	Jobs() []Job
}

// startJobs wires an app's jobs into a cron runner. Returns nil when the
// app schedules nothing.
func startJobs(app App) *cron.Cron {
	s, ok := app.(Scheduler)
	if !ok {
		return nil
	}
	jobs := s.Jobs()
	if len(jobs) == 0 {
		return nil
	}

	runner := cron.New()
	for _, job := range jobs {
		j := job
		if _, err := runner.AddFunc(j.Spec, func() {
			if err := j.Run(context.Background()); err != nil {
				log.Printf("Job %q failed: %v", j.Name, err)
			}
		}); err != nil {
			log.Printf("Skipping job %q, bad spec %q: %v", j.Name, j.Spec, err)
			continue
		}
		log.Printf("Scheduled job %q (%s)", j.Name, j.Spec)
	}
	runner.Start()
	return runner
}

// stopJobs stops the runner and waits for in-flight jobs, bounded by ctx.
func stopJobs(ctx context.Context, runner *cron.Cron) {
	if runner == nil {
		return
	}
	select {
	case <-runner.Stop().Done():
	case <-ctx.Done():
		log.Println("Gave up waiting for running jobs")
	}
}
