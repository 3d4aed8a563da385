package metadata

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/qobs-build/cargo-xcode/internal/msg"
)

// Runner queries cargo for package metadata
type Runner struct {
	// Cargo is the cargo executable. Defaults to $CARGO (set when running as `cargo xcode`), then "cargo".
	Cargo string
	// Stderr receives cargo's diagnostics when verbose output is on.
	Stderr io.Writer
}

func NewRunner() *Runner {
	cargo := os.Getenv("CARGO")
	if cargo == "" {
		cargo = "cargo"
	}
	return &Runner{Cargo: cargo}
}

func (r *Runner) args(manifestPath string) []string {
	args := []string{"metadata", "--format-version", "1", "--no-deps"}
	if manifestPath != "" {
		args = append(args, "--manifest-path", manifestPath)
	}
	return args
}

// Query runs `cargo metadata` and parses its output
func (r *Runner) Query(ctx context.Context, manifestPath string) ([]*Package, error) {
	args := r.args(manifestPath)
	msg.Verbose("$ %s %s", r.Cargo, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, r.Cargo, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if r.Stderr != nil && stderr.Len() > 0 {
		r.Stderr.Write(stderr.Bytes())
	}
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("cargo metadata: %w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("cargo metadata: %w", err)
	}

	return ParseBytes(stdout.Bytes())
}

// Load reads metadata from a file previously produced by `cargo metadata`. "-" reads stdin.
func Load(path string) ([]*Package, error) {
	if path == "-" {
		return Parse(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
