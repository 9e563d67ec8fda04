// anmtool inspects skeleton, skin and animation files.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/lolanim/internal/logger"
	"github.com/Faultbox/lolanim/pkg/formats"
)

// usageError carries the usage line of the command that was misused.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func main() {
	logger.Init(os.Getenv("ANMTOOL_LOG"), "")
	defer logger.Sync()

	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var u usageError
		if errors.As(err, &u) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return usageError("anmtool <command> [options]")
	}

	command, args := args[0], args[1:]
	switch command {
	case "info":
		return cmdInfo(args, out)
	case "joints":
		return cmdJoints(args, out)
	case "tracks":
		return cmdTracks(args, out)
	case "pose":
		return cmdPose(args, out)
	case "check":
		return cmdCheck(args, out)
	case "dump":
		return cmdDump(args, out)
	case "hash":
		return cmdHash(args, out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return errors.Errorf("unknown command %q", command)
	}
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `anmtool - skeleton, skin and animation inspector

Usage:
  anmtool <command> [options]

Commands:
  info <file>                          Summarize a .skl, .skn or .anm file
  joints [-tree] <file.skl>            List joints
  tracks [-skl file.skl] <file.anm>    List animation tracks and key counts
  pose [-t sec] <file.skl> <file.anm>  Print posed joint positions
  check <file.skn> <file.skl>          Validate a skin against a skeleton
  dump [-depth n] <file>               Dump the decoded structure
  hash <name>...                       Print joint and submesh hashes

Examples:
  anmtool info annie.skl
  anmtool tracks -skl annie.skl annie_idle1.anm
  anmtool pose -t 0.5 annie.skl annie_run.anm`)
}

// decodeFile runs decode on path and logs the outcome. Set ANMTOOL_LOG=debug
// to see decode timings.
func decodeFile[T any](path string, decode func(string) (T, error)) (T, error) {
	log := logger.Named("anmtool")
	start := time.Now()
	v, err := decode(path)
	if err != nil {
		log.Warn("decode failed", zap.String("path", path), zap.Error(err))
		return v, err
	}
	log.Debug("decoded", zap.String("path", path), zap.Duration("took", time.Since(start)))
	return v, nil
}

// decodeAny decodes a file by extension.
func decodeAny(path string) (any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".skl":
		return decodeFile(path, formats.DecodeSkeletonFile)
	case ".skn":
		return decodeFile(path, formats.DecodeSkinFile)
	case ".anm":
		return decodeFile(path, formats.DecodeAnimationFile)
	default:
		return nil, errors.Errorf("%s: unknown file type", path)
	}
}
