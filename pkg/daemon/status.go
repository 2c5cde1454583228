package daemon

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Start-up outcomes recorded in the status file.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// StatusFile tells multifocus whether a freshly spawned multifocusd came
// up. It sits next to the socket.
type StatusFile struct {
	Status string `json:"status"`
	PID    int    `json:"pid,omitempty"`
	Error  string `json:"error,omitempty"`
}

func WriteStatusReady(path string) error {
	return StatusFile{Status: StatusReady, PID: os.Getpid()}.write(path)
}

// WriteStatusError records why start-up failed.
func WriteStatusError(path string, cause error) error {
	return StatusFile{Status: StatusError, Error: cause.Error()}.write(path)
}

// write replaces path atomically so a polling reader never sees half a
// document.
func (f StatusFile) write(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &StatusFile{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

func RemoveStatus(path string) error {
	return os.Remove(path)
}

// StatusPath places the status file in dir, which is the socket's directory.
func StatusPath(dir string) string {
	return filepath.Join(dir, "multifocus.status")
}
