package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowIsPerKey(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	krl := New(1, 2)
	krl.now = func() time.Time { return now }

	assert.True(t, krl.Allow("10.0.0.1"))
	assert.True(t, krl.Allow("10.0.0.1"))
	assert.False(t, krl.Allow("10.0.0.1"))

	assert.True(t, krl.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, krl.Allow("10.0.0.1"))
}

func TestIdleKeysAreDropped(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	krl := New(1, 1)
	krl.now = func() time.Time { return now }

	krl.Allow("a")
	krl.Allow("b")
	assert.Equal(t, 2, krl.Len())

	now = now.Add(11 * time.Minute)
	krl.Allow("c")
	assert.Equal(t, 1, krl.Len())
}
