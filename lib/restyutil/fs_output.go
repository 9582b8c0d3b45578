package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	devenv "lunchbot/dev/env"
)

// FilesystemOutput dumps every instrumented message into <id>.http and
// appends "<id> <method> <url>" to an index file.
type FilesystemOutput struct {
	directory string
	mutex     *sync.Mutex
}

// NewFilesystemOutput clears and recreates dir, <dev_state> paths are resolved.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	dir, err := devenv.ResolvePath(dir)
	if err != nil {
		return FilesystemOutput{}, err
	}
	err = os.RemoveAll(dir)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("clear %s: %w", dir, err)
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir, mutex: &sync.Mutex{}}, nil
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".http"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message file", "id", id, "err", err)
		return
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()
	index, err := os.OpenFile(filepath.Join(o.directory, "index"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		slog.Warn("failed to open message index", "err", err)
		return
	}
	defer index.Close()
	fmt.Fprintf(index, "%s %s\n", id, requestLine(contents))
}

// requestLine is the first non-empty line of a message that is not a
// section banner.
func requestLine(contents string) string {
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "----") {
			continue
		}
		return line
	}
	return ""
}
