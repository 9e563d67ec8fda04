// Package playback drives the animation play-head for one model.
package playback

import (
	"github.com/pkg/errors"

	"github.com/Faultbox/lolanim/pkg/formats"
)

// Player tracks the current clip and time. The pose evaluator holds boundary
// keys, so end-of-clip behavior lives here.
type Player struct {
	Time    float32 // Seconds into the current clip
	Speed   float32 // Multiplier applied to Advance
	Loop    bool    // Restart the clip at its end
	Next    bool    // Move to the following clip at its end, wrapping; wins over Loop
	Playing bool

	clips   []*formats.Animation
	current int
}

// New returns a playing, looping Player at normal speed on the first clip.
func New(clips []*formats.Animation) *Player {
	return &Player{
		Speed:   1,
		Loop:    true,
		Playing: true,
		clips:   clips,
	}
}

// Len returns the number of clips.
func (p *Player) Len() int {
	return len(p.clips)
}

// Current returns the index of the current clip.
func (p *Player) Current() int {
	return p.current
}

// Clip returns the current clip, or nil when there are none.
func (p *Player) Clip() *formats.Animation {
	if len(p.clips) == 0 {
		return nil
	}
	return p.clips[p.current]
}

// Select switches to clip i and rewinds.
func (p *Player) Select(i int) error {
	if i < 0 || i >= len(p.clips) {
		return errors.Errorf("animation index %d out of range [0, %d)", i, len(p.clips))
	}
	p.current = i
	p.Time = 0
	return nil
}

// Seek moves the play-head to t, clamped to the clip.
func (p *Player) Seek(t float32) {
	clip := p.Clip()
	if clip == nil {
		return
	}
	p.Time = clamp(t, 0, clip.Duration)
}

// SyncTo sets the play-head from a lead model's time so several models
// animate together. Looping players wrap t into their own clip, others
// clamp it to the clip end.
func (p *Player) SyncTo(t float32) {
	clip := p.Clip()
	if clip == nil {
		return
	}
	if p.Loop && clip.Duration > 0 && t >= 0 {
		n := int(t / clip.Duration)
		t -= float32(n) * clip.Duration
	}
	p.Time = clamp(t, 0, clip.Duration)
}

// Advance moves the play-head by dt seconds scaled by Speed. It reports
// whether the current clip changed.
func (p *Player) Advance(dt float32) bool {
	clip := p.Clip()
	if clip == nil || !p.Playing {
		return false
	}

	if p.Time < clip.Duration {
		p.Time += dt * p.Speed
		if p.Time < clip.Duration {
			return false
		}
	}

	switch {
	case p.Next:
		p.current = (p.current + 1) % len(p.clips)
		p.Time = 0
		return true
	case p.Loop:
		p.Time = 0
	default:
		p.Time = clip.Duration
	}
	return false
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
