package sysfs

import (
	"context"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// Attributes reads and writes kernel attribute files. Writes that are denied
// by file permissions are retried through the Elevator, if one is configured
type Attributes struct {
	fs       afero.Fs
	elevator Elevator
}

// NewAttributes returns an Attributes backed by fs. elevator may be nil, in
// which case permission errors are returned as-is
func NewAttributes(fs afero.Fs, elevator Elevator) (*Attributes, error) {
	if fs == nil {
		return nil, errors.New("[sysfs] nil fs is invalid")
	}
	return &Attributes{
		fs:       fs,
		elevator: elevator,
	}, nil
}

// NewOsAttributes returns an Attributes on the real filesystem with pkexec elevation
func NewOsAttributes() *Attributes {
	return &Attributes{
		fs:       afero.NewOsFs(),
		elevator: NewPkexecElevator(),
	}
}

// Exists reports whether the attribute file is present
func (a *Attributes) Exists(path string) bool {
	ok, err := afero.Exists(a.fs, path)
	return ok && err == nil
}

// Resolve returns the first existing path among primary and alternates.
// If none exists, primary is returned
func (a *Attributes) Resolve(primary string, alternates ...string) string {
	if a.Exists(primary) {
		return primary
	}
	for _, alt := range alternates {
		if a.Exists(alt) {
			return alt
		}
	}
	return primary
}

// Read returns the content of the attribute with surrounding whitespace removed
func (a *Attributes) Read(path string) (string, error) {
	b, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "[sysfs] error reading %s", path)
	}
	return strings.TrimSpace(string(b)), nil
}

// Write stores value into the attribute. A permission error falls back to the
// Elevator; any other error (including a missing attribute) is returned
func (a *Attributes) Write(ctx context.Context, path string, value string) error {
	err := a.writeDirect(path, value)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrPermission) || a.elevator == nil {
		return errors.Wrapf(err, "[sysfs] error writing %s", path)
	}

	log.Printf("[sysfs] permission denied on %s, requesting elevation\n", path)
	if err := a.elevator.Write(ctx, path, value); err != nil {
		return errors.Wrapf(err, "[sysfs] error writing %s", path)
	}
	return nil
}

func (a *Attributes) writeDirect(path string, value string) error {
	// sysfs attributes cannot be created, so no O_CREATE
	f, err := a.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Node binds a resolved attribute path to its Attributes
func (a *Attributes) Node(path string) *Node {
	return &Node{
		attrs: a,
		path:  path,
	}
}

// Writable reports whether the current process may write path without elevation.
// Only meaningful on the real filesystem
func Writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

// Node is a single attribute file
type Node struct {
	attrs *Attributes
	path  string
}

// Path returns the resolved location of the attribute
func (n *Node) Path() string {
	return n.path
}

// Exists reports whether the attribute is present
func (n *Node) Exists() bool {
	return n.attrs.Exists(n.path)
}

// Read returns the trimmed attribute content
func (n *Node) Read() (string, error) {
	return n.attrs.Read(n.path)
}

// Write stores value into the attribute
func (n *Node) Write(ctx context.Context, value string) error {
	return n.attrs.Write(ctx, n.path, value)
}
