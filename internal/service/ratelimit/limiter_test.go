package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowIsPerKey(t *testing.T) {
	l := New(0.001, 2)
	assert.True(t, l.Allow("run"))
	assert.True(t, l.Allow("run"))
	assert.False(t, l.Allow("run"))
	assert.True(t, l.Allow("scan"))
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(0.001, 1)
	assert.True(t, l.Allow("yahoo"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "yahoo"))
}
