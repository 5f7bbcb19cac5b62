package collectors

import (
	"context"
	"time"

	"github.com/hetulpatel/hedj/internal/logging"
)

// RunLoop calls run immediately and then once per interval until ctx is done.
// A failed iteration is logged and the next one still runs; runs never overlap.
func RunLoop(ctx context.Context, name string, every time.Duration, run func(context.Context) error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			logging.Errorf("[%s] run failed: %v", name, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
