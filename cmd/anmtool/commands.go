package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/Faultbox/lolanim/pkg/formats"
	"github.com/Faultbox/lolanim/pkg/hash"
	lmath "github.com/Faultbox/lolanim/pkg/math"
	"github.com/Faultbox/lolanim/pkg/pose"
)

func cmdInfo(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError("anmtool info <file>")
	}

	decoded, err := decodeAny(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File:       %s\n", args[0])
	switch v := decoded.(type) {
	case *formats.Skeleton:
		fmt.Fprintf(out, "Type:       skeleton (%s v%d)\n", v.Type, v.Version)
		fmt.Fprintf(out, "Joints:     %d\n", len(v.Joints))
		fmt.Fprintf(out, "Roots:      %d\n", len(v.Roots()))
		fmt.Fprintf(out, "Influences: %d\n", len(v.Influences))
	case *formats.Skin:
		fmt.Fprintf(out, "Type:       skin (v%s)\n", v.Version)
		fmt.Fprintf(out, "Vertices:   %d\n", v.VertexCount())
		fmt.Fprintf(out, "Indices:    %d\n", len(v.Indices))
		fmt.Fprintf(out, "Bounds:     %v - %v\n", v.BoundingBox[0], v.BoundingBox[1])
		fmt.Fprintf(out, "Submeshes:  %d\n", len(v.Submeshes))
		for _, sm := range v.Submeshes {
			fmt.Fprintf(out, "  %-24s %6d indices from %d\n", sm.Name, sm.IndexCount, sm.IndexStart)
		}
	case *formats.Animation:
		fmt.Fprintf(out, "Type:       animation (%s v%d)\n", v.Format, v.Version)
		fmt.Fprintf(out, "FPS:        %.2f\n", v.FPS)
		fmt.Fprintf(out, "Duration:   %.3fs\n", v.Duration)
		fmt.Fprintf(out, "Tracks:     %d\n", len(v.Tracks))
		fmt.Fprintf(out, "Keys:       %d\n", v.KeyCount())
	}
	return nil
}

func cmdJoints(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("joints", flag.ContinueOnError)
	tree := fs.Bool("tree", false, "Print the hierarchy as an indented tree")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError("anmtool joints [-tree] <file.skl>")
	}

	skl, err := decodeFile(fs.Arg(0), formats.DecodeSkeletonFile)
	if err != nil {
		return err
	}

	if *tree {
		var walk func(i, depth int)
		walk = func(i, depth int) {
			fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", depth), skl.Joints[i].Name)
			for _, c := range skl.Joints[i].Children {
				walk(c, depth+1)
			}
		}
		for _, r := range skl.Roots() {
			walk(r, 0)
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPARENT\tHASH\tNAME\tPOSITION")
	for _, j := range skl.Joints {
		p := lmath.Translation(j.Global)
		fmt.Fprintf(w, "%d\t%d\t%08x\t%s\t(%.3f, %.3f, %.3f)\n", j.ID, j.ParentID, j.Hash, j.Name, p[0], p[1], p[2])
	}
	return w.Flush()
}

func cmdTracks(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("tracks", flag.ContinueOnError)
	sklPath := fs.String("skl", "", "Skeleton used to name tracks")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError("anmtool tracks [-skl file.skl] <file.anm>")
	}

	anm, err := decodeFile(fs.Arg(0), formats.DecodeAnimationFile)
	if err != nil {
		return err
	}

	var skl *formats.Skeleton
	if *sklPath != "" {
		if skl, err = decodeFile(*sklPath, formats.DecodeSkeletonFile); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tJOINT\tTRANSLATIONS\tROTATIONS\tSCALES")
	unbound := 0
	for _, t := range anm.Tracks {
		name := "-"
		if skl != nil {
			if i := skl.JointByHash(t.Hash); i >= 0 {
				name = skl.Joints[i].Name
			} else {
				name = "(unbound)"
				unbound++
			}
		}
		fmt.Fprintf(w, "%08x\t%s\t%d\t%d\t%d\n", t.Hash, name, len(t.Translations), len(t.Rotations), len(t.Scales))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if skl != nil {
		fmt.Fprintf(out, "\n%d of %d tracks bound\n", len(anm.Tracks)-unbound, len(anm.Tracks))
	}
	return nil
}

func cmdPose(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pose", flag.ContinueOnError)
	at := fs.Float64("t", 0, "Time in seconds")
	joint := fs.String("joint", "", "Only print this joint")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError("anmtool pose [-t sec] [-joint name] <file.skl> <file.anm>")
	}

	skl, err := decodeFile(fs.Arg(0), formats.DecodeSkeletonFile)
	if err != nil {
		return err
	}
	anm, err := decodeFile(fs.Arg(1), formats.DecodeAnimationFile)
	if err != nil {
		return err
	}

	state := pose.NewState(skl, anm)
	state.Evaluate(float32(*at), nil)

	only := -1
	if *joint != "" {
		if only = skl.JointByName(*joint); only < 0 {
			return errors.Errorf("no joint named %q", *joint)
		}
	}

	fmt.Fprintf(out, "t=%.3fs (%d of %d joints animated)\n", *at, state.BoundJoints(), len(skl.Joints))
	for i, g := range state.Globals() {
		if only >= 0 && i != only {
			continue
		}
		p := lmath.Translation(g)
		fmt.Fprintf(out, "%-32s (%.4f, %.4f, %.4f)\n", skl.Joints[i].Name, p[0], p[1], p[2])
	}
	return nil
}

func cmdCheck(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	tolerance := fs.Float64("tolerance", 0.01, "Allowed weight sum deviation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError("anmtool check [-tolerance f] <file.skn> <file.skl>")
	}

	skn, err := decodeFile(fs.Arg(0), formats.DecodeSkinFile)
	if err != nil {
		return err
	}
	skl, err := decodeFile(fs.Arg(1), formats.DecodeSkeletonFile)
	if err != nil {
		return err
	}

	if err := skn.CheckInfluences(skl); err != nil {
		return errors.Wrap(err, "influences")
	}
	fmt.Fprintf(out, "Influences: ok (%d vertices, %d joints)\n", skn.VertexCount(), len(skl.Joints))

	bad := skn.UnnormalizedWeights(float32(*tolerance))
	if len(bad) == 0 {
		fmt.Fprintln(out, "Weights:    ok")
		return nil
	}
	fmt.Fprintf(out, "Weights:    %d vertices off by more than %g\n", len(bad), *tolerance)
	for _, i := range bad[:min(len(bad), 10)] {
		w := skn.Weights[i]
		fmt.Fprintf(out, "  vertex %d sums to %.4f\n", i, w[0]+w[1]+w[2]+w[3])
	}
	return nil
}

func cmdDump(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	depth := fs.Int("depth", 3, "Maximum nesting depth (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError("anmtool dump [-depth n] <file>")
	}

	decoded, err := decodeAny(fs.Arg(0))
	if err != nil {
		return err
	}

	cfg := spew.NewDefaultConfig()
	cfg.DisableCapacities = true
	cfg.DisablePointerAddresses = true
	cfg.MaxDepth = *depth
	cfg.Fdump(out, decoded)
	return nil
}

func cmdHash(args []string, out io.Writer) error {
	if len(args) < 1 {
		return usageError("anmtool hash <name>...")
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tJOINT (ELF)\tSUBMESH (FNV-1a)")
	for _, name := range args {
		fmt.Fprintf(w, "%s\t%08x\t%08x\n", name, hash.ELF(name), hash.FNV1a(name))
	}
	return w.Flush()
}
