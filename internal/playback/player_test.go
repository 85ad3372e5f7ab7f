package playback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/posetrace/internal/timeutil"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAdvance(t *testing.T) {
	p := New(10, 0.2, timeutil.NewMockClock(epoch))

	steps := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 0},
		{100 * time.Millisecond, 1},  // 1.2
		{600 * time.Millisecond, 7},  // 7.2
		{850 * time.Millisecond, 0},  // 10.2 wraps
		{1000 * time.Millisecond, 1}, // 1.8
	}
	for _, s := range steps {
		assert.Equal(t, s.want, p.Advance(epoch.Add(s.elapsed)), "at %v", s.elapsed)
	}
	assert.Equal(t, 1, p.Frame())
}

func TestAdvanceIgnoresBackwardsTime(t *testing.T) {
	p := New(10, 1, nil)
	p.Advance(epoch)
	assert.Equal(t, 6, p.Advance(epoch.Add(100*time.Millisecond)))
	assert.Equal(t, 6, p.Advance(epoch))
}

func TestZeroFrames(t *testing.T) {
	p := New(0, 1, nil)
	p.Advance(epoch)
	assert.Equal(t, 0, p.Advance(epoch.Add(time.Second)))
	p.Seek(5)
	assert.Equal(t, 0, p.Frame())
}

func TestSeekAndSpeed(t *testing.T) {
	p := New(10, -1, nil)
	assert.Equal(t, DefaultSpeed, p.Speed())

	p.Seek(4)
	assert.Equal(t, 4, p.Frame())
	p.Seek(42)
	assert.Equal(t, 9, p.Frame())
	p.Seek(-3)
	assert.Equal(t, 0, p.Frame())

	p = New(10, 0, nil)
	p.Seek(3)
	p.Advance(epoch)
	assert.Equal(t, 3, p.Advance(epoch.Add(time.Hour)))
}

func TestRun(t *testing.T) {
	clock := timeutil.NewMockClock(epoch)
	p := New(10, 1, clock)

	frames := make(chan int)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Run(ctx, 100*time.Millisecond, func(f int) { frames <- f })
	}()

	next := func() int {
		select {
		case f := <-frames:
			return f
		case <-time.After(2 * time.Second):
			t.Fatal("no frame delivered")
			return -1
		}
	}

	require.Equal(t, 0, next())
	for _, want := range []int{6, 0, 6} {
		clock.Advance(100 * time.Millisecond)
		assert.Equal(t, want, next())
	}

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
