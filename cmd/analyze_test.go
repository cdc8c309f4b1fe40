package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestTimeout(t *testing.T) {
	ctx, cancel := withRequestTimeout(context.Background(), 0)
	_, ok := ctx.Deadline()
	assert.False(t, ok)
	cancel()
	assert.Error(t, ctx.Err())

	start := time.Now()
	ctx, cancel = withRequestTimeout(context.Background(), time.Minute)
	defer cancel()
	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, start.Add(time.Minute), deadline, 5*time.Second)
}
