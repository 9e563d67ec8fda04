package config

import (
	"flag"
	"time"
)

// Flags holds command-line overrides registered on a FlagSet.
type Flags struct {
	config     *string
	debug      *bool
	skin       *string
	skeleton   *string
	animations *string
	animation  *string
	speed      *float64
	noLoop     *bool
	next       *bool
	runFor     *time.Duration
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:     fs.String("config", "", "Path to config file"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
		skin:       fs.String("skin", "", "Skin (.skn) path"),
		skeleton:   fs.String("skeleton", "", "Skeleton (.skl) path"),
		animations: fs.String("animations", "", "Directory of .anm files"),
		animation:  fs.String("anim", "", "Initial animation name"),
		speed:      fs.Float64("speed", 0, "Playback speed multiplier"),
		noLoop:     fs.Bool("no-loop", false, "Hold the last frame instead of looping"),
		next:       fs.Bool("next", false, "Play the following animation when one ends"),
		runFor:     fs.Duration("run-for", 0, "How long to play, e.g. 10s"),
	}
}

// ConfigPath returns the explicit config path, if any.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.skin != "" {
		cfg.Model.Skin = *f.skin
	}
	if *f.skeleton != "" {
		cfg.Model.Skeleton = *f.skeleton
	}
	if *f.animations != "" {
		cfg.Model.AnimationDir = *f.animations
	}
	if *f.animation != "" {
		cfg.Playback.Animation = *f.animation
	}
	if *f.speed > 0 {
		cfg.Playback.Speed = float32(*f.speed)
	}
	if *f.noLoop {
		cfg.Playback.Loop = false
	}
	if *f.next {
		cfg.Playback.Next = true
	}
	if *f.runFor > 0 {
		cfg.Playback.RunFor = *f.runFor
	}
}
