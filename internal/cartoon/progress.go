package cartoon

import (
	"context"
	"time"
)

// simulateProgress nudges the session's progress upward until ctx ends.
// It is presentational only and never reaches 100.
func (o *Orchestrator) simulateProgress(ctx context.Context, id string) {
	ticker := time.NewTicker(o.opts.ProgressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := o.sessions.update(id, func(s *Session) error {
				if s.Step == StepGenerating {
					s.Progress = advance(s.Progress, o.opts.Step(), o.opts.ProgressCeiling)
				}
				return nil
			})
			if err != nil {
				return
			}
		}
	}
}

func advance(current, step, ceiling int) int {
	if step < 0 {
		step = 0
	}
	next := current + step
	if next > ceiling {
		return ceiling
	}
	return next
}
