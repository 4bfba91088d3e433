package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAllUp(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("b", func(ctx context.Context) error { return nil })
	c.Register("a", func(ctx context.Context) error { return nil })
	c.Disable("kafka", "events disabled")

	report := c.Run(context.Background())
	assert.Equal(t, StatusUp, report.Status)
	require.Len(t, report.Components, 3)
	assert.Equal(t, "a", report.Components[0].Name)
	assert.Equal(t, "b", report.Components[1].Name)
	assert.Equal(t, StatusDisabled, report.Components[2].Status)
}

func TestRunOneDown(t *testing.T) {
	c := NewChecker(time.Second)
	c.Register("storage", func(ctx context.Context) error { return errors.New("connection refused") })
	c.Register("events", func(ctx context.Context) error { return nil })

	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusUp, report.Components[0].Status)
	assert.Equal(t, StatusDown, report.Components[1].Status)
	assert.Equal(t, "connection refused", report.Components[1].Message)
}

func TestRunAppliesTimeout(t *testing.T) {
	c := NewChecker(10 * time.Millisecond)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	report := c.Run(context.Background())
	require.Len(t, report.Components, 1)
	assert.Equal(t, StatusDown, report.Status)
	assert.Contains(t, report.Components[0].Message, "deadline exceeded")
}
