package engine

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	settingFlag = "-s"
	outputFlag  = "-o"

	// maxLabelBytes keeps "<label>-<uuid>.gcode" well under NAME_MAX.
	maxLabelBytes = 100
)

// Setting is one engine override passed as "-s key=value".
type Setting struct {
	Key   string
	Value string
}

// SliceRequest describes one engine run.
type SliceRequest struct {
	// ModelPath is the uploaded model on local storage.
	ModelPath string
	// JobLabel names the output file; empty means a generated identity.
	JobLabel string
	// Settings keep the caller's order.
	Settings []Setting
}

// SliceResult is returned for a zero exit. The caller owns OutputPath.
type SliceResult struct {
	JobID      string
	OutputPath string
	Stdout     string
	Stderr     string
	ExitCode   int
	Duration   time.Duration
}

var unsafeLabelChars = regexp.MustCompile(`[\s/\\]+`)

// JobIdentity derives the filesystem token used to name a job's output. A label keeps
// its text with whitespace and path separators replaced by "_", and always gets a unique
// suffix so two jobs with the same label never share an output file. Long labels are
// cut to maxLabelBytes on a rune boundary.
func JobIdentity(label string) string {
	id := uuid.NewString()
	label = strings.TrimSpace(label)
	if label == "" {
		return id
	}
	return truncateLabel(unsafeLabelChars.ReplaceAllString(label, "_")) + "-" + id
}

func truncateLabel(s string) string {
	if len(s) <= maxLabelBytes {
		return s
	}
	cut := maxLabelBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// BuildArgs returns a fresh argument list:
// [base...] [-s key=value ...] -o outputPath modelPath.
// Settings with an empty value are skipped.
func BuildArgs(base []string, settings []Setting, outputPath, modelPath string) []string {
	args := make([]string, 0, len(base)+2*len(settings)+3)
	args = append(args, base...)
	for _, s := range settings {
		if s.Value == "" {
			continue
		}
		args = append(args, settingFlag, s.Key+"="+s.Value)
	}
	return append(args, outputFlag, outputPath, modelPath)
}
