package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileRotator handles log file rotation.
type FileRotator struct {
	config *Config
	mu     sync.Mutex
	file   *os.File
	size   int64
}

// NewFileRotator creates a new FileRotator.
func NewFileRotator(cfg *Config) (*FileRotator, error) {
	r := &FileRotator{config: cfg}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o750); err != nil {
		return nil, err
	}
	if err := r.openFile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRotator) openFile() error {
	file, err := os.OpenFile(r.config.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	r.file = file
	r.size = info.Size()
	return nil
}

// Write writes to the current log file, rotating first when the write
// would push it past the size limit.
func (r *FileRotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := r.config.MaxSize * 1024 * 1024
	if limit > 0 && r.size+int64(len(p)) > limit {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// rotate renames the current file with a timestamp suffix and starts a
// fresh one, pruning the oldest backups past the configured count.
func (r *FileRotator) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}

	rotated := fmt.Sprintf("%s.%s", r.config.FilePath, time.Now().Format("20060102-150405"))
	if err := os.Rename(r.config.FilePath, rotated); err != nil {
		return err
	}

	if err := r.pruneBackups(); err != nil {
		return err
	}
	return r.openFile()
}

func (r *FileRotator) pruneBackups() error {
	if r.config.MaxBackups <= 0 {
		return nil
	}

	backups, err := filepath.Glob(r.config.FilePath + ".*")
	if err != nil {
		return err
	}
	if len(backups) <= r.config.MaxBackups {
		return nil
	}

	// Timestamp suffixes sort chronologically.
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-r.config.MaxBackups] {
		if err := os.Remove(old); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the current log file.
func (r *FileRotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
