// Package config loads settings for the playback tool.
package config

import (
	"fmt"
	"time"

	"github.com/Faultbox/lolanim/internal/logger"
)

// Config holds all settings.
type Config struct {
	Model      ModelConfig       `yaml:"model"`
	Companions []CompanionConfig `yaml:"companions"`
	Playback   PlaybackConfig    `yaml:"playback"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// ModelConfig locates the assets of one model. Relative paths are resolved
// against each search root in order.
type ModelConfig struct {
	Roots           []string `yaml:"roots"`
	Skin            string   `yaml:"skin"`
	Skeleton        string   `yaml:"skeleton"`
	AnimationDir    string   `yaml:"animation_dir"`
	WeightTolerance float32  `yaml:"weight_tolerance"` // Allowed deviation of a vertex weight sum from 1
}

// CompanionConfig is an extra model whose play-head follows the main model's
// time. It shares the main model's roots and weight tolerance.
type CompanionConfig struct {
	Skin         string `yaml:"skin"`
	Skeleton     string `yaml:"skeleton"`
	AnimationDir string `yaml:"animation_dir"`
	Animation    string `yaml:"animation"` // Clip name; empty selects the first
}

// PlaybackConfig controls the play-head.
type PlaybackConfig struct {
	Animation string        `yaml:"animation"` // Initial clip name; empty selects the first
	Speed     float32       `yaml:"speed"`
	Loop      bool          `yaml:"loop"`
	Next      bool          `yaml:"next"` // Advance to the following clip at the end
	TickRate  int           `yaml:"tick_rate"`
	RunFor    time.Duration `yaml:"run_for"` // Zero plays the selected clip once
	Realtime  bool          `yaml:"realtime"` // Pace ticks with the wall clock
}

// LoggingConfig holds logging settings. File output is off while File.Path is empty.
type LoggingConfig struct {
	Level string            `yaml:"level"`
	File  logger.FileConfig `yaml:"file"`
}

// Options converts the settings for logger.InitWithOptions.
func (l LoggingConfig) Options() logger.Options {
	return logger.Options{Level: l.Level, Console: true, File: l.File}
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Roots:           []string{"."},
			AnimationDir:    "animations",
			WeightTolerance: 0.01,
		},
		Playback: PlaybackConfig{
			Speed:    1,
			Loop:     true,
			TickRate: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  logger.DefaultFileConfig(""),
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Model.Skin == "" {
		return fmt.Errorf("model.skin is required")
	}
	if c.Model.Skeleton == "" {
		return fmt.Errorf("model.skeleton is required")
	}
	if len(c.Model.Roots) == 0 {
		return fmt.Errorf("model.roots must not be empty")
	}
	for i, comp := range c.Companions {
		if comp.Skin == "" || comp.Skeleton == "" {
			return fmt.Errorf("companions[%d] needs both skin and skeleton", i)
		}
	}
	if c.Model.WeightTolerance < 0 {
		return fmt.Errorf("model.weight_tolerance %v is negative", c.Model.WeightTolerance)
	}
	if c.Playback.Speed <= 0 {
		return fmt.Errorf("playback.speed %v must be positive", c.Playback.Speed)
	}
	if c.Playback.TickRate <= 0 {
		return fmt.Errorf("playback.tick_rate %d must be positive", c.Playback.TickRate)
	}
	if c.Playback.RunFor < 0 {
		return fmt.Errorf("playback.run_for %v is negative", c.Playback.RunFor)
	}
	f := c.Logging.File
	if f.MaxSizeMB < 0 || f.MaxBackups < 0 || f.MaxAgeDays < 0 {
		return fmt.Errorf("logging.file rotation limits must not be negative")
	}
	return nil
}
