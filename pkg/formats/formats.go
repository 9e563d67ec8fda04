// Package formats provides decoders for the skeleton (SKL), skinned mesh (SKN)
// and animation (ANM) asset formats.
//
// Decoders take the complete file contents and return a fully built record or
// a *FormatError. No partial record is ever returned.
package formats

import (
	"errors"
	"fmt"
	"os"
)

// Causes carried by FormatError. Test with errors.Is.
var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTruncated          = errors.New("truncated data")
	ErrBadOffset          = errors.New("offset out of range")
	ErrInvalidHeader      = errors.New("invalid header value")
	ErrUnknownEntryType   = errors.New("unknown entry type")
)

// FormatError describes why a file could not be decoded.
type FormatError struct {
	Format string // "skl", "skn" or "anm"
	Offset int    // Byte offset where decoding stopped
	Detail string // Optional context, e.g. the offending version number
	Err    error  // One of the Err* causes above
}

func (e *FormatError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %v (%s) at offset 0x%x", e.Format, e.Err, e.Detail, e.Offset)
	}
	return fmt.Sprintf("%s: %v at offset 0x%x", e.Format, e.Err, e.Offset)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Version is a major/minor file version pair.
type Version struct {
	Major uint16
	Minor uint16
}

// String returns the version as "Major.Minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v Version) AtLeast(major, minor uint16) bool {
	if v.Major > major {
		return true
	}
	if v.Major == major && v.Minor >= minor {
		return true
	}
	return false
}

// DecodeSkeletonFile decodes a skeleton file from disk.
func DecodeSkeletonFile(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SKL file: %w", err)
	}
	return DecodeSkeleton(data)
}

// DecodeSkinFile decodes a skin file from disk.
func DecodeSkinFile(path string) (*Skin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading SKN file: %w", err)
	}
	return DecodeSkin(data)
}

// DecodeAnimationFile decodes an animation file from disk.
func DecodeAnimationFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ANM file: %w", err)
	}
	return DecodeAnimation(data)
}
