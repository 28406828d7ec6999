package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/darmiel/idtoken/internal/core"
)

var _ core.Auditor = (*FileAuditor)(nil)

// ErrAuditorClosed is returned when logging to a closed auditor.
var ErrAuditorClosed = errors.New("auditor is closed")

// FileAuditor appends mint and verify entries to a file, one JSON object per line.
type FileAuditor struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileAuditor opens (or creates) filePath for appending. Missing parent
// directories are created.
func NewFileAuditor(filePath string) (*FileAuditor, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0700); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log file: %w", err)
	}
	return &FileAuditor{file: file, enc: json.NewEncoder(file)}, nil
}

func (f *FileAuditor) Log(entry core.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return ErrAuditorClosed
	}
	entry.Time = entry.Time.UTC()
	if err := f.enc.Encode(entry); err != nil {
		return fmt.Errorf("writing audit entry %s: %w", entry.ID, err)
	}
	return nil
}

// Close syncs and closes the file. Closing twice is a no-op.
func (f *FileAuditor) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}
	file := f.file
	f.file = nil
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("syncing audit log file: %w", err)
	}
	return file.Close()
}
