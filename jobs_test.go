package girder

import (
	"context"
	"testing"
	"time"
)

type jobApp struct {
	jobs []Job
}

func (a *jobApp) OnStart(ctx context.Context) error { return nil }
func (a *jobApp) OnStop(ctx context.Context) error  { return nil }
func (a *jobApp) Routes() []Route                   { return nil }
func (a *jobApp) Jobs() []Job                       { return a.jobs }

type plainApp struct{}

func (a *plainApp) OnStart(ctx context.Context) error { return nil }
func (a *plainApp) OnStop(ctx context.Context) error  { return nil }
func (a *plainApp) Routes() []Route                   { return nil }

func TestStartJobsRunsScheduledWork(t *testing.T) {
	ran := make(chan struct{}, 1)

	app := &jobApp{jobs: []Job{
		{
			Name: "tick",
			Spec: "@every 10ms",
			Run: func(ctx context.Context) error {
				select {
				case ran <- struct{}{}:
				default:
				}
				return nil
			},
		},
	}}

	runner := startJobs(app)
	if runner == nil {
		t.Fatal("Expected a runner for an app with jobs")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		stopJobs(ctx, runner)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduled job never ran")
	}
}

func TestStartJobsNonScheduler(t *testing.T) {
	if runner := startJobs(&plainApp{}); runner != nil {
		t.Error("Expected no runner for an app without jobs")
	}
}

func TestStartJobsEmptyList(t *testing.T) {
	if runner := startJobs(&jobApp{}); runner != nil {
		t.Error("Expected no runner for an empty job list")
	}
}

func TestStartJobsBadSpec(t *testing.T) {
	app := &jobApp{jobs: []Job{
		{Name: "broken", Spec: "not a cron spec", Run: func(ctx context.Context) error { return nil }},
	}}

	// A bad spec is skipped, not fatal.
	runner := startJobs(app)
	if runner == nil {
		t.Fatal("Expected a runner even when a spec is skipped")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	stopJobs(ctx, runner)
}
