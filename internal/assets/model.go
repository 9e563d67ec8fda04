package assets

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/lolanim/pkg/formats"
	"github.com/Faultbox/lolanim/pkg/pose"
)

// maxLoggedVertices caps how many offending vertex indices a weight warning lists.
const maxLoggedVertices = 8

// ModelPaths names the files that make up a model.
type ModelPaths struct {
	Skin         string
	Skeleton     string
	AnimationDir string // Optional; every *.anm inside is loaded
}

// Clip is a decoded animation with the name it was loaded under.
type Clip struct {
	Name      string // File name without extension
	Animation *formats.Animation
}

// Model is a skinned mesh with its skeleton, animations and pose state.
type Model struct {
	Name     string
	Skin     *formats.Skin // Influences already remapped to joint indices
	Skeleton *formats.Skeleton
	Clips    []Clip // Sorted by name

	Pose       *pose.State
	Transforms []mgl32.Mat4 // Skinning matrices from the last Update
}

// LoadModel loads a skin and skeleton, binds them, and loads all animations
// found in paths.AnimationDir. Any file that fails to decode fails the load.
func (m *Manager) LoadModel(paths ModelPaths) (*Model, error) {
	skl, err := m.LoadSkeleton(paths.Skeleton)
	if err != nil {
		return nil, errors.Wrap(err, "loading model")
	}
	skn, err := m.LoadSkin(paths.Skin)
	if err != nil {
		return nil, errors.Wrap(err, "loading model")
	}

	if err := skn.CheckInfluences(skl); err != nil {
		return nil, errors.Wrapf(err, "binding %s to %s", paths.Skin, paths.Skeleton)
	}
	skn.ApplySkeleton(skl)

	if bad := skn.UnnormalizedWeights(m.WeightTolerance); len(bad) > 0 {
		m.log.Warn("vertex weights do not sum to 1",
			zap.String("skin", paths.Skin),
			zap.Int("vertices", len(bad)),
			zap.Ints("first", bad[:min(len(bad), maxLoggedVertices)]),
			zap.Float32("tolerance", m.WeightTolerance))
	}

	model := &Model{
		Name:     baseName(paths.Skin),
		Skin:     skn,
		Skeleton: skl,
	}

	if paths.AnimationDir != "" {
		files, err := m.Glob(paths.AnimationDir, "*.anm")
		if err != nil {
			return nil, errors.Wrap(err, "loading model")
		}
		if len(files) == 0 {
			m.log.Warn("no animations found", zap.String("dir", paths.AnimationDir))
		}
		for _, f := range files {
			anm, err := m.LoadAnimation(f)
			if err != nil {
				return nil, errors.Wrap(err, "loading model")
			}
			model.Clips = append(model.Clips, Clip{Name: baseName(f), Animation: anm})
		}
	}

	var first *formats.Animation
	if len(model.Clips) > 0 {
		first = model.Clips[0].Animation
	}
	model.Pose = pose.NewState(skl, first)
	model.Transforms = make([]mgl32.Mat4, len(skl.Joints))
	model.Update(0)

	m.log.Info("loaded model",
		zap.String("name", model.Name),
		zap.Int("joints", len(skl.Joints)),
		zap.Int("vertices", skn.VertexCount()),
		zap.Int("animations", len(model.Clips)),
		zap.Int("bound_joints", model.Pose.BoundJoints()))
	return model, nil
}

func baseName(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Animations returns the decoded clips in order.
func (md *Model) Animations() []*formats.Animation {
	out := make([]*formats.Animation, len(md.Clips))
	for i := range md.Clips {
		out[i] = md.Clips[i].Animation
	}
	return out
}

// ClipIndex returns the index of the clip with the given name
// (case-insensitive), or -1.
func (md *Model) ClipIndex(name string) int {
	for i := range md.Clips {
		if strings.EqualFold(md.Clips[i].Name, name) {
			return i
		}
	}
	return -1
}

// SelectClip binds clip i to the pose state.
func (md *Model) SelectClip(i int) error {
	if i < 0 || i >= len(md.Clips) {
		return errors.Errorf("clip index %d out of range [0, %d)", i, len(md.Clips))
	}
	md.Pose.Bind(md.Clips[i].Animation)
	return nil
}

// Update poses the model at time t and refreshes Transforms.
func (md *Model) Update(t float32) {
	md.Transforms = md.Pose.Evaluate(t, md.Transforms)
}
