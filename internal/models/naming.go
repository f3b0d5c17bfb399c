package models

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// File naming convention: captures are grouped under a per-profile
// directory; bracket members carry a _bN suffix; the fused result uses
// the bare base name.

// CaptureBaseName builds the timestamped base name for one capture slot.
func CaptureBaseName(scheduleName string, t time.Time) string {
	name := scheduleName
	if name == "" {
		name = "manual"
	}
	return fmt.Sprintf("%s_%s", t.Format("20060102T150405"), name)
}

// SinglePath is the path for a non-bracket exposure (or a fused result).
func SinglePath(dir, profileID, base string) string {
	return filepath.Join(dir, profileID, base+".jpg")
}

// BracketMemberPath is the path for bracket member index.
func BracketMemberPath(dir, profileID, base string, index int) string {
	return filepath.Join(dir, profileID, fmt.Sprintf("%s_b%d.jpg", base, index))
}

var bracketSuffix = regexp.MustCompile(`_b\d+(\.[a-zA-Z0-9]+)$`)

// FusedPathFromMember derives the fused output path from any bracket
// member's path by dropping the _bN suffix.
func FusedPathFromMember(memberPath string) string {
	return bracketSuffix.ReplaceAllString(memberPath, "$1")
}

// SidecarPath is the metadata file written next to a fused result,
// linking it to its sources.
func SidecarPath(fusedPath string) string {
	ext := filepath.Ext(fusedPath)
	return strings.TrimSuffix(fusedPath, ext) + ".json"
}
