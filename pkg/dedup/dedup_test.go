package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessDropsRepeatWithinTTL(t *testing.T) {
	d := New(time.Minute, 10)

	assert.True(t, d.ShouldProcess("42"))
	assert.False(t, d.ShouldProcess("42"))
	assert.True(t, d.ShouldProcess("43"))
}

func TestShouldProcessAcceptsAfterExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := New(time.Minute, 10)
	d.now = func() time.Time { return now }

	assert.True(t, d.ShouldProcess("7"))
	now = now.Add(2 * time.Minute)
	assert.True(t, d.ShouldProcess("7"))
}

func TestMarkRefreshesExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := New(time.Minute, 10)
	d.now = func() time.Time { return now }

	assert.True(t, d.ShouldProcess("7"))
	now = now.Add(40 * time.Second)
	d.Mark("7")
	now = now.Add(40 * time.Second)
	assert.False(t, d.ShouldProcess("7"), "still inside the refreshed TTL")
	now = now.Add(time.Minute)
	assert.True(t, d.ShouldProcess("7"))
}

func TestEmptyIDAlwaysProcessed(t *testing.T) {
	d := New(time.Minute, 10)
	assert.True(t, d.ShouldProcess(""))
	assert.True(t, d.ShouldProcess(""))
	assert.Equal(t, 0, d.Len())
}

func TestCapIsEnforced(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := New(time.Hour, 3)
	d.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assert.True(t, d.ShouldProcess(id))
	}
	assert.Equal(t, 3, d.Len())
	// the newest ids survive eviction
	assert.False(t, d.ShouldProcess("e"))
}
