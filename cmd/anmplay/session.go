package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/lolanim/internal/assets"
	"github.com/Faultbox/lolanim/internal/config"
	"github.com/Faultbox/lolanim/internal/playback"
	lmath "github.com/Faultbox/lolanim/pkg/math"
)

// session couples a loaded model with its play-head. Companion models
// follow the lead play-head's time.
type session struct {
	cfg        *config.Config
	log        *zap.Logger
	assets     *assets.Manager
	model      *assets.Model
	player     *playback.Player
	companions []*companion
}

type companion struct {
	model  *assets.Model
	player *playback.Player
}

func newSession(cfg *config.Config, log *zap.Logger) (*session, error) {
	m := assets.NewManager(log.Named("assets"))
	m.WeightTolerance = cfg.Model.WeightTolerance
	for _, dir := range cfg.Model.Roots {
		if err := m.AddRoot(dir); err != nil {
			return nil, err
		}
	}

	model, err := m.LoadModel(assets.ModelPaths{
		Skin:         cfg.Model.Skin,
		Skeleton:     cfg.Model.Skeleton,
		AnimationDir: cfg.Model.AnimationDir,
	})
	if err != nil {
		return nil, err
	}

	player := playback.New(model.Animations())
	player.Speed = cfg.Playback.Speed
	player.Loop = cfg.Playback.Loop
	player.Next = cfg.Playback.Next

	if name := cfg.Playback.Animation; name != "" {
		i := model.ClipIndex(name)
		if i < 0 {
			return nil, errors.Errorf("model %s has no animation %q", model.Name, name)
		}
		if err := player.Select(i); err != nil {
			return nil, err
		}
		if err := model.SelectClip(i); err != nil {
			return nil, err
		}
	}

	s := &session{cfg: cfg, log: log, assets: m, model: model, player: player}
	for i, cc := range cfg.Companions {
		c, err := loadCompanion(m, cc, cfg.Playback.Loop)
		if err != nil {
			return nil, errors.Wrapf(err, "companion %d", i)
		}
		s.companions = append(s.companions, c)
	}
	return s, nil
}

func loadCompanion(m *assets.Manager, cc config.CompanionConfig, loop bool) (*companion, error) {
	model, err := m.LoadModel(assets.ModelPaths{
		Skin:         cc.Skin,
		Skeleton:     cc.Skeleton,
		AnimationDir: cc.AnimationDir,
	})
	if err != nil {
		return nil, err
	}

	player := playback.New(model.Animations())
	player.Loop = loop
	if cc.Animation != "" {
		i := model.ClipIndex(cc.Animation)
		if i < 0 {
			return nil, errors.Errorf("model %s has no animation %q", model.Name, cc.Animation)
		}
		if err := player.Select(i); err != nil {
			return nil, err
		}
		if err := model.SelectClip(i); err != nil {
			return nil, err
		}
	}
	return &companion{model: model, player: player}, nil
}

// ticks returns how many steps Run takes.
func (s *session) ticks() int {
	rate := float64(s.cfg.Playback.TickRate)
	if s.cfg.Playback.RunFor > 0 {
		return int(s.cfg.Playback.RunFor.Seconds() * rate)
	}
	clip := s.player.Clip()
	if clip == nil {
		return 0
	}
	return int(float64(clip.Duration/s.player.Speed)*rate) + 1
}

// Run steps the play-head at the configured tick rate and poses the model
// after each step.
func (s *session) Run(ctx context.Context) (string, error) {
	dt := 1 / float32(s.cfg.Playback.TickRate)
	total := s.ticks()

	var ticker *time.Ticker
	if s.cfg.Playback.Realtime {
		ticker = time.NewTicker(time.Duration(float64(time.Second) * float64(dt)))
		defer ticker.Stop()
	}

	if clip := s.currentClip(); clip != "" {
		s.log.Info("playing", zap.String("animation", clip), zap.Int("ticks", total))
	}

	switches := 0
	for i := 0; i < total; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return "", errors.Wrap(ctx.Err(), "playback interrupted")
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return "", errors.Wrap(err, "playback interrupted")
		}

		if s.player.Advance(dt) {
			switches++
			if err := s.model.SelectClip(s.player.Current()); err != nil {
				return "", err
			}
			s.log.Info("next animation", zap.String("animation", s.currentClip()))
		}
		s.model.Update(s.player.Time)
		for _, c := range s.companions {
			c.player.SyncTo(s.player.Time)
			c.model.Update(c.player.Time)
		}

		if ce := s.log.Check(zap.DebugLevel, "tick"); ce != nil && len(s.model.Transforms) > 0 {
			root := lmath.Translation(s.model.Pose.Globals()[0])
			ce.Write(zap.Int("tick", i), zap.Float32("time", s.player.Time),
				zap.Float32s("root", root[:]))
		}
	}

	return s.summary(total, switches), nil
}

func (s *session) currentClip() string {
	if s.player.Len() == 0 {
		return ""
	}
	return s.model.Clips[s.player.Current()].Name
}

func (s *session) summary(ticks, switches int) string {
	clip := s.currentClip()
	if clip == "" {
		clip = "(bind pose)"
	}
	return fmt.Sprintf("%s: %d ticks, %d clip changes, ended on %s at %.3fs",
		s.model.Name, ticks, switches, clip, s.player.Time)
}

// Close releases cached asset data.
func (s *session) Close() {
	hits, misses := s.assets.CacheStats()
	s.log.Debug("asset cache", zap.Int("hits", hits), zap.Int("misses", misses))
	s.assets.Close()
}
