package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ResumeMailer/internal/models"
)

// runPool feeds jobs to a fixed number of workers and collects one outcome
// per job, in input order. Jobs not handed out before ctx ends are reported
// as outcomeNotStarted and left PENDING.
func runPool(
	ctx context.Context,
	workers int,
	jobs []models.DueJob,
	logger *zap.Logger,
	handle func(context.Context, models.DueJob) outcome,
) []outcome {

	results := make([]outcome, len(jobs))
	for i := range results {
		results[i] = outcomeNotStarted
	}

	if workers <= 1 {
		for i, job := range jobs {
			if ctx.Err() != nil {
				break
			}
			results[i] = handle(ctx, job)
		}
		return results
	}

	type task struct {
		index int
		job   models.DueJob
	}
	queue := make(chan task)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			logger.Debug("worker started", zap.Int("worker_id", id))

			for t := range queue {
				results[t.index] = handle(ctx, t.job)
			}
		}(i)
	}

feed:
	for i, job := range jobs {
		select {
		case <-ctx.Done():
			logger.Warn("batch interrupted", zap.Int("remaining", len(jobs)-i), zap.Error(ctx.Err()))
			break feed
		case queue <- task{index: i, job: job}:
		}
	}
	close(queue)

	wg.Wait()
	return results
}
