package envfile

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// ErrBinary is returned for candidate files that do not look like text.
var ErrBinary = errors.New("binary content")

// Result is the update batch for one file.
type Result struct {
	Path    string
	Updates []LineUpdate
	Written bool // False when nothing changed or on a dry run
}

// Changed reports whether the batch holds at least one changed line.
func (r Result) Changed() bool {
	return len(r.Updates) > 0
}

// ProcessFile reads path, rewrites qualifying lines and writes the file
// back only when something changed. With dryRun set the file is never written.
func (r *Rewriter) ProcessFile(path string, dryRun bool) (Result, error) {
	result := Result{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		return result, fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := ReadFileWithRetry(path)
	if err != nil {
		return result, fmt.Errorf("reading %s: %w", path, err)
	}
	if IsBinaryContent(data) {
		return result, fmt.Errorf("reading %s: %w", path, ErrBinary)
	}

	output, updates, changed := r.Rewrite(string(data))
	if !changed {
		return result, nil
	}
	for i := range updates {
		updates[i].File = path
	}
	result.Updates = updates

	if dryRun {
		return result, nil
	}

	if err := atomic.WriteFile(path, strings.NewReader(output)); err != nil {
		return result, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(path, info.Mode().Perm()); err != nil {
		return result, fmt.Errorf("restoring mode of %s: %w", path, err)
	}
	result.Written = true
	return result, nil
}

// ReadFileWithRetry reads a file, retrying once after a short delay
// if the first attempt fails (common on Windows when editors are saving).
func ReadFileWithRetry(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		time.Sleep(50 * time.Millisecond)
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// IsBinaryContent checks the first 512 bytes (or less) for null bytes.
func IsBinaryContent(data []byte) bool {
	checkSize := 512
	if len(data) < checkSize {
		checkSize = len(data)
	}

	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}
