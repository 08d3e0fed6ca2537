// Package artifact hands produced G-code to the client and owns its cleanup.
package artifact

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"printum/internal/slicer/workspace"
)

const defaultBaseName = "model"

// Artifact is a finished job: the uploaded model and the engine output, both on local
// storage until Release runs.
type Artifact struct {
	JobID      string
	InputPath  string
	OutputPath string
	// FileName is the attachment name shown to the client.
	FileName string

	once    sync.Once
	cleanup func(ctx context.Context, path string)
}

// New creates an artifact whose files are deleted through ws, or directly when ws is nil.
func New(jobID, inputPath, outputPath, fileName string, ws *workspace.Workspace) *Artifact {
	a := &Artifact{
		JobID:      jobID,
		InputPath:  inputPath,
		OutputPath: outputPath,
		FileName:   fileName,
	}
	if ws != nil {
		a.cleanup = ws.Remove
	}
	return a
}

// Release deletes the input and output files. Only the first call has any effect.
func (a *Artifact) Release(ctx context.Context) {
	a.once.Do(func() {
		cleanup := a.cleanup
		if cleanup == nil {
			cleanup = func(ctx context.Context, path string) { workspace.SafeRemove(ctx, nil, path) }
		}
		cleanup(ctx, a.InputPath)
		cleanup(ctx, a.OutputPath)
	})
}

// AttachmentName returns "<label>.gcode" when a label was given, otherwise the uploaded
// file's base name with its extension swapped for .gcode.
func AttachmentName(label, originalName string) string {
	if label = strings.TrimSpace(label); label != "" {
		return label + workspace.OutputExt
	}
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = defaultBaseName
	}
	return base + workspace.OutputExt
}

// ContentDisposition formats an attachment header with a quoted, escaped filename.
func ContentDisposition(name string) string {
	var b strings.Builder
	b.WriteString(`attachment; filename="`)
	for _, r := range name {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r < 0x20 || r == 0x7f:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
