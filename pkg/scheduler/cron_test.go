package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJob(t *testing.T) {
	cr := NewCron(time.UTC, nil)

	_, err := cr.AddJob("purge", "@every 15m", time.Second, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Len(t, cr.Entries(), 1)

	_, err = cr.AddJob("bad", "not a schedule", 0, func(context.Context) error { return nil })
	assert.ErrorContains(t, err, "failed to schedule bad")
}

func TestJobRuns(t *testing.T) {
	cr := NewCron(time.UTC, nil)
	ran := make(chan struct{}, 1)

	_, err := cr.AddJob("tick", "@every 1s", time.Second, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		if hasDeadline {
			select {
			case ran <- struct{}{}:
			default:
			}
		}
		return nil
	})
	require.NoError(t, err)

	cr.Start()
	defer cr.Stop()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
}
