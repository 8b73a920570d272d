package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/nevala/sysprobe/internal/errors"
)

const fileName = "sysprobed.pid"

// Path returns the pid file location for this host
func Path() string {
	return filepath.Join(os.TempDir(), fileName)
}

// Write claims the pid file for the current process. It fails with
// ErrAlreadyRunning when the file names a live process; a stale file
// (dead owner or unreadable content) is taken over silently.
func Write() error {
	return writeFile(Path(), os.Getpid())
}

// Remove releases the pid file. Missing file is not an error.
func Remove() error {
	return removeFile(Path())
}

func writeFile(path string, pid int) error {
	errFactory := errors.New()

	if owner, ok := readOwner(path); ok && alive(owner) {
		return errFactory.WithData(errors.ErrAlreadyRunning, owner)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInitFailed, err)
	}

	return nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}

	errFactory := errors.New()

	return errFactory.Wrap(errors.ErrShutdownFailed, err)
}

// readOwner parses the pid recorded in the file, reporting ok=false for a
// missing or garbled file
func readOwner(path string) (int, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	owner, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || owner <= 0 {
		return 0, false
	}

	return owner, true
}

// alive probes the process with the null signal
func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	return process.Signal(syscall.Signal(0)) == nil
}
