package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/listenupapp/lending-server/internal/config"
	"github.com/listenupapp/lending-server/internal/logger"
	"github.com/listenupapp/lending-server/internal/service"
)

// LateLoanJob periodically notifies borrowers of overdue loans.
type LateLoanJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable. It waits for an in-flight run to stop.
func (j *LateLoanJob) Shutdown() error {
	j.cancel()
	<-j.done
	return nil
}

// ProvideLateLoanJob starts the late-loan job. It runs once at startup, then every interval.
func ProvideLateLoanJob(i do.Injector) (*LateLoanJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	notifier := do.MustInvoke[*service.LateLoanNotifier](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &LateLoanJob{cancel: cancel, done: make(chan struct{})}

	if !cfg.Loans.NotifyLateLoans {
		log.Info("Late-loan job disabled by configuration")
		close(job.done)
		return job, nil
	}

	go func() {
		defer close(job.done)
		runLateLoanJob(ctx, notifier, cfg.Loans.LateLoanCheckInterval, log)
	}()

	log.Info("Late-loan job started", "interval", cfg.Loans.LateLoanCheckInterval)

	return job, nil
}

func runLateLoanJob(ctx context.Context, notifier *service.LateLoanNotifier, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		if _, err := notifier.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Late-loan notification failed", "error", err)
		}
	}

	run()
	for {
		select {
		case <-ticker.C:
			run()
		case <-ctx.Done():
			return
		}
	}
}
