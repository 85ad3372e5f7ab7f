// Package playback steps through a reconstructed trajectory in wall-clock
// time, looping back to the first frame at the end.
package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/posetrace/internal/monitoring"
	"github.com/banshee-data/posetrace/internal/timeutil"
)

// DefaultSpeed is the playback speed used when none is configured.
const DefaultSpeed = 0.2

// DefaultInterval is the refresh period used by Run, roughly 60 Hz.
const DefaultInterval = 16 * time.Millisecond

// framesPerSecond is the display rate the speed is expressed against: at
// speed 1 playback advances 60 frames per second.
const framesPerSecond = 60

// Player tracks a fractional playback position. It is safe for concurrent
// use.
type Player struct {
	clock timeutil.Clock

	mu       sync.Mutex
	frames   int
	speed    float64
	position float64
	last     time.Time
	started  bool
}

// New returns a player over frames frames. A nil clock uses the wall clock.
func New(frames int, speed float64, clock timeutil.Clock) *Player {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if speed < 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = DefaultSpeed
	}
	return &Player{clock: clock, frames: max(frames, 0), speed: speed}
}

// Advance moves the position by the time elapsed since the previous call
// and returns the frame to display. The first call only records now.
func (p *Player) Advance(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		dt := now.Sub(p.last)
		if dt > 0 {
			p.position += p.speed * dt.Seconds() * framesPerSecond
		}
	}
	p.last = now
	p.started = true

	if p.position >= float64(p.frames) {
		p.position = 0
	}
	return p.frameLocked()
}

// Frame returns the frame at the current position.
func (p *Player) Frame() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frameLocked()
}

func (p *Player) frameLocked() int {
	if p.frames == 0 {
		return 0
	}
	return min(int(math.Floor(p.position)), p.frames-1)
}

// Seek jumps to frame f, clamped to the valid range.
func (p *Player) Seek(f int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = float64(max(0, min(f, p.frames-1)))
}

// Speed returns the current playback speed.
func (p *Player) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speed
}

// Run advances the player every interval until ctx is done, calling
// onFrame with the first frame and each time the displayed frame changes.
func (p *Player) Run(ctx context.Context, interval time.Duration, onFrame func(int)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	current := p.Advance(p.clock.Now())
	onFrame(current)
	monitoring.Debugf("playback started: %d frames at speed %.2f", p.frames, p.Speed())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			if f := p.Advance(now); f != current {
				current = f
				onFrame(f)
			}
		}
	}
}
