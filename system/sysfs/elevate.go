package sysfs

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultElevationTimeout bounds how long we wait for the user to answer the polkit prompt
	DefaultElevationTimeout = time.Second * 60
	// TeePath is passed to pkexec by absolute path so polkit rules can match the exact command line
	TeePath = "/usr/bin/tee"
)

var (
	// ErrElevationFailed is returned when the privileged helper exits with an error
	ErrElevationFailed = errors.New("elevated write failed")
	// ErrElevationTimeout is returned when the privileged helper did not finish in time
	ErrElevationTimeout = errors.New("elevated write timed out")
)

// Elevator writes an attribute with privileges the current process does not have
type Elevator interface {
	Write(ctx context.Context, path string, value string) error
}

// PkexecElevator pipes the value into "pkexec /usr/bin/tee <path>". polkit shows an
// authentication prompt unless a rule grants the caller's group access
type PkexecElevator struct {
	Command string
	// Tee defaults to TeePath
	Tee     string
	Timeout time.Duration
}

var _ Elevator = &PkexecElevator{}

// NewPkexecElevator returns an Elevator using pkexec with the default timeout
func NewPkexecElevator() *PkexecElevator {
	return &PkexecElevator{
		Command: "pkexec",
		Tee:     TeePath,
		Timeout: DefaultElevationTimeout,
	}
}

// Write satisfies Elevator
func (p *PkexecElevator) Write(ctx context.Context, path string, value string) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultElevationTimeout
	}
	tee := p.Tee
	if tee == "" {
		tee = TeePath
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command, tee, path)
	cmd.Stdin = strings.NewReader(value)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrapf(ErrElevationTimeout, "%s %s %s", p.Command, tee, path)
	}
	if err != nil {
		return errors.Wrapf(ErrElevationFailed, "%s %s %s: %v: %s", p.Command, tee, path, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
