package probe

import (
	"context"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// System abstracts the host lookups needed by the prober so tests can run
// against a fake host.
type System interface {
	LookPath(file string) (string, error)
	Getenv(key string) string
	Geteuid() int
	Stat(name string) (os.FileInfo, error)
	Access(path string, mode uint32) error
	CommandOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RealSystem implements System using the OS.
type RealSystem struct{}

// LookPath searches for an executable in the directories named by PATH.
func (RealSystem) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Getenv returns the value of an environment variable.
func (RealSystem) Getenv(key string) string {
	return os.Getenv(key)
}

// Geteuid returns the effective user id of the caller.
func (RealSystem) Geteuid() int {
	return os.Geteuid()
}

// Stat returns a FileInfo describing the named file.
func (RealSystem) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// Access checks real-user permissions on path, e.g. unix.W_OK.
func (RealSystem) Access(path string, mode uint32) error {
	return unix.Access(path, mode)
}

// CommandOutput runs the named command and returns its standard output.
func (RealSystem) CommandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
