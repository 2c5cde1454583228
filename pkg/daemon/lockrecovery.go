package daemon

import (
	"os"
	"path/filepath"

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
)

// RecoverFromStaleDaemon removes the PID file, socket and badger LOCK
// left behind by a daemon that died. It returns ErrDaemonAlreadyRunning
// if the recorded process is alive.
func RecoverFromStaleDaemon(pidPath, socketPath, storeDir string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		// missing or unreadable PID file: nothing to recover
		return nil //nolint:nilerr // a missing pid file is the normal case
	}

	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	logging.Get("daemon").Warn("cleaning up stale daemon files", "stale_pid", pid)

	_ = os.Remove(pidPath)
	_ = os.Remove(socketPath)
	_ = os.Remove(filepath.Join(storeDir, "LOCK"))
	return nil
}
