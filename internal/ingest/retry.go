package ingest

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// retryInterval is the backoff between retried attempts of a fallible
// one-shot task (gift-catalog fetch, stream-meta fetch, summary task).
const retryInterval = 2 * time.Second

// retryThrice runs f up to three times, logging a warning on each failed
// attempt and sleeping retryInterval between attempts. It logs an error
// (but still returns) if all three attempts fail.
func retryThrice(ctx context.Context, log logrus.FieldLogger, name string, f func(context.Context) error) {
	for i := 0; i < 3; i++ {
		if err := f(ctx); err != nil {
			log.WithError(err).Warnf("%s error", name)
		} else {
			return
		}
		if i == 2 {
			log.Errorf("failed to run %s thrice", name)
			return
		}
		if !sleepCtx(ctx, retryInterval) {
			return
		}
	}
}

// sleepCtx sleeps for d, returning false early (without sleeping the full
// duration) if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
