package util

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes external programs. Tests replace it with a recorder
type Runner interface {
	// Run executes name with args in dir, which may be empty for the current directory
	Run(ctx context.Context, dir string, name string, args ...string) error
	LookPath(name string) (string, error)
}

// ExecRunner runs commands with os/exec, streaming their output to Stdout and Stderr
type ExecRunner struct {
	Stdout *os.File
	Stderr *os.File
}

var _ Runner = &ExecRunner{}

func (e *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) error {
	log.Printf("exec: %s %s\n", name, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stdout = e.Stdout
	if e.Stderr != nil {
		cmd.Stderr = e.Stderr
	} else {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return errors.Wrapf(err, "%s: %s", name, msg)
		}
		return errors.Wrap(err, name)
	}
	return nil
}

func (e *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
