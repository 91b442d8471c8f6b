package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sampleProgress periodically estimates solve progress from elapsed wall
// time against the job's limit, capped at 95 until a terminal state claims
// the rest. The repository drops stale or non-RUNNING samples, so a racing
// completion never sees its 100 overwritten.
func (r *Runner) sampleProgress(ctx context.Context, jobID string, startedAt time.Time, limitSeconds int) {
	ticker := time.NewTicker(r.cfg.ProgressInterval)
	defer ticker.Stop()

	lastLogged := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pct := estimateProgress(r.now().Sub(startedAt), limitSeconds)
		if err := r.jobs.UpdateProgress(ctx, jobID, pct); err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Warn("progress update failed", zap.String("job_id", jobID), zap.Error(err))
			continue
		}
		if pct >= lastLogged+10 {
			lastLogged = pct
			r.log.Info("job progress", zap.String("job_id", jobID), zap.Int("progress", pct))
		}
	}
}

func estimateProgress(elapsed time.Duration, limitSeconds int) int {
	if limitSeconds <= 0 {
		return 95
	}
	pct := int(elapsed.Seconds() / float64(limitSeconds) * 95)
	if pct > 95 {
		pct = 95
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}
