// Package health probes the slicing engine binary without running it.
package health

import (
	"context"
	"fmt"
	"os"
)

// Report is the outcome of one probe.
type Report struct {
	Ready      bool
	BinaryPath string
	Message    string
}

// Probe checks that the engine binary exists and can be executed.
type Probe struct {
	binary string
}

// NewProbe creates a probe for binary.
func NewProbe(binary string) *Probe {
	return &Probe{binary: binary}
}

// Check stats the binary and verifies execute permission.
func (p *Probe) Check(ctx context.Context) Report {
	report := Report{BinaryPath: p.binary}
	if err := ctx.Err(); err != nil {
		report.Message = err.Error()
		return report
	}

	info, err := os.Stat(p.binary)
	if err != nil {
		report.Message = err.Error()
		return report
	}
	if info.IsDir() {
		report.Message = fmt.Sprintf("%s is a directory", p.binary)
		return report
	}
	if err := checkExecutable(p.binary); err != nil {
		report.Message = fmt.Sprintf("%s is not executable: %v", p.binary, err)
		return report
	}

	report.Ready = true
	return report
}
