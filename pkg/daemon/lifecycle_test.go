package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jamesainslie/multifocus/pkg/daemon"
)

const deadPID = 999999999

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestPIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "multifocus.pid")

	if daemon.IsDaemonRunning(pidPath) {
		t.Error("IsDaemonRunning() = true without a pid file")
	}

	if err := daemon.WritePIDFile(pidPath); err != nil {
		t.Fatalf("WritePIDFile() error = %v", err)
	}
	pid, err := daemon.ReadPIDFile(pidPath)
	if err != nil {
		t.Fatalf("ReadPIDFile() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPIDFile() = %d, want %d", pid, os.Getpid())
	}
	if !daemon.IsDaemonRunning(pidPath) {
		t.Error("IsDaemonRunning() = false for the current process")
	}

	writeFile(t, pidPath, strconv.Itoa(deadPID))
	if daemon.IsDaemonRunning(pidPath) {
		t.Error("IsDaemonRunning() = true for a dead pid")
	}

	writeFile(t, pidPath, "garbage")
	if _, err := daemon.ReadPIDFile(pidPath); err == nil {
		t.Error("ReadPIDFile() error = nil for garbage content")
	}

	if err := daemon.RemovePIDFile(pidPath); err != nil {
		t.Fatalf("RemovePIDFile() error = %v", err)
	}
	if exists(pidPath) {
		t.Error("pid file still exists after RemovePIDFile()")
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !daemon.IsProcessRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
	for _, pid := range []int{deadPID, 0, -1} {
		if daemon.IsProcessRunning(pid) {
			t.Errorf("IsProcessRunning(%d) = true", pid)
		}
	}
}

func TestAcquirePIDLock(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "multifocus.pid")

	lock, err := daemon.AcquirePIDLock(pidPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock() error = %v", err)
	}

	pid, err := daemon.ReadPIDFile(pidPath)
	if err != nil || pid != os.Getpid() {
		t.Errorf("pid file = %d, %v; want %d", pid, err, os.Getpid())
	}

	// flock is per open file description, so a second open conflicts
	// even inside one process.
	if _, err := daemon.AcquirePIDLock(pidPath); !errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
		t.Errorf("second AcquirePIDLock() error = %v, want ErrDaemonAlreadyRunning", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if exists(pidPath) {
		t.Error("pid file still exists after Release()")
	}

	again, err := daemon.AcquirePIDLock(pidPath)
	if err != nil {
		t.Fatalf("AcquirePIDLock() after release error = %v", err)
	}
	_ = again.Release()
}

func TestRecoverFromStaleDaemon(t *testing.T) {
	type paths struct{ pid, sock, store, lock string }
	setup := func(t *testing.T) paths {
		dir := t.TempDir()
		p := paths{
			pid:   filepath.Join(dir, "multifocus.pid"),
			sock:  filepath.Join(dir, "multifocus.sock"),
			store: filepath.Join(dir, "store"),
		}
		p.lock = filepath.Join(p.store, "LOCK")
		if err := os.MkdirAll(p.store, 0o755); err != nil {
			t.Fatal(err)
		}
		return p
	}

	t.Run("no pid file", func(t *testing.T) {
		p := setup(t)
		if err := daemon.RecoverFromStaleDaemon(p.pid, p.sock, p.store); err != nil {
			t.Errorf("RecoverFromStaleDaemon() error = %v", err)
		}
	})

	t.Run("invalid pid file", func(t *testing.T) {
		p := setup(t)
		writeFile(t, p.pid, "not-a-number")
		if err := daemon.RecoverFromStaleDaemon(p.pid, p.sock, p.store); err != nil {
			t.Errorf("RecoverFromStaleDaemon() error = %v", err)
		}
	})

	t.Run("live process", func(t *testing.T) {
		p := setup(t)
		writeFile(t, p.pid, strconv.Itoa(os.Getpid()))
		err := daemon.RecoverFromStaleDaemon(p.pid, p.sock, p.store)
		if !errors.Is(err, daemon.ErrDaemonAlreadyRunning) {
			t.Errorf("RecoverFromStaleDaemon() error = %v, want ErrDaemonAlreadyRunning", err)
		}
		if !exists(p.pid) {
			t.Error("pid file of a live daemon was removed")
		}
	})

	t.Run("stale process", func(t *testing.T) {
		p := setup(t)
		writeFile(t, p.pid, strconv.Itoa(deadPID))
		writeFile(t, p.sock, "fake socket")
		writeFile(t, p.lock, "fake lock")

		if err := daemon.RecoverFromStaleDaemon(p.pid, p.sock, p.store); err != nil {
			t.Fatalf("RecoverFromStaleDaemon() error = %v", err)
		}
		for _, path := range []string{p.pid, p.sock, p.lock} {
			if exists(path) {
				t.Errorf("%s should have been removed", path)
			}
		}
	})
}

func TestStatusFile(t *testing.T) {
	dir := t.TempDir()
	path := daemon.StatusPath(dir)
	if filepath.Base(path) != "multifocus.status" {
		t.Errorf("StatusPath() = %q", path)
	}

	if err := daemon.WriteStatusReady(path); err != nil {
		t.Fatalf("WriteStatusReady() error = %v", err)
	}
	st, err := daemon.ReadStatus(path)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if st.Status != "ready" || st.PID != os.Getpid() || st.Error != "" {
		t.Errorf("ReadStatus() = %+v, want ready with current pid", st)
	}

	if err := daemon.WriteStatusError(path, errors.New("socket in use")); err != nil {
		t.Fatalf("WriteStatusError() error = %v", err)
	}
	st, err = daemon.ReadStatus(path)
	if err != nil {
		t.Fatalf("ReadStatus() error = %v", err)
	}
	if st.Status != "error" || st.Error != "socket in use" || st.PID != 0 {
		t.Errorf("ReadStatus() = %+v, want error status", st)
	}

	if err := daemon.RemoveStatus(path); err != nil {
		t.Fatalf("RemoveStatus() error = %v", err)
	}
	if _, err := daemon.ReadStatus(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadStatus() after remove error = %v, want not exist", err)
	}

	writeFile(t, path, "{broken")
	if _, err := daemon.ReadStatus(path); err == nil {
		t.Error("ReadStatus() error = nil for broken JSON")
	}
}
