// Package audit provides the append-only JSONL audit log of completed
// expert exchanges, one file per feature id.
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sdlc-forge/maestro/pkg/models"
)

// ErrDisabled is returned when auditing is not configured.
var ErrDisabled = errors.New("audit logging disabled")

// Writer appends audit records to {dir}/{feature_id}.jsonl.
// Writes to the same feature are serialized; different features proceed
// concurrently. Nil-safe: a nil Writer reports disabled.
type Writer struct {
	dir    string
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter creates an audit writer rooted at dir, creating it if needed.
// Returns nil (auditing disabled) when dir is empty.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		slog.Warn("Audit log path unset, auditing disabled")
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit log dir: %w", err)
	}
	return &Writer{
		dir:    dir,
		logger: slog.Default().With("component", "audit"),
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// Enabled reports whether audit records will be persisted.
func (w *Writer) Enabled() bool {
	return w != nil
}

// Append durably writes one record to the feature's log file. The record is
// flushed and fsynced before returning so a success return means the
// exchange cannot be lost silently.
func (w *Writer) Append(rec *models.AuditRecord) error {
	if w == nil {
		return ErrDisabled
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	lock := w.featureLock(rec.FeatureID)
	lock.Lock()
	defer lock.Unlock()

	path := w.featurePath(rec.FeatureID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}

	return nil
}

// ReadFeature loads every record for a feature, in write order.
// Intended for operator tooling and tests.
func (w *Writer) ReadFeature(featureID string) ([]*models.AuditRecord, error) {
	if w == nil {
		return nil, ErrDisabled
	}

	lock := w.featureLock(featureID)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(w.featurePath(featureID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []*models.AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt audit record in %s: %w", featureID, err)
		}
		records = append(records, &rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return records, nil
}

func (w *Writer) featurePath(featureID string) string {
	return filepath.Join(w.dir, sanitizeFeatureID(featureID)+".jsonl")
}

func (w *Writer) featureLock(featureID string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	lock, ok := w.locks[featureID]
	if !ok {
		lock = &sync.Mutex{}
		w.locks[featureID] = lock
	}
	return lock
}

// sanitizeFeatureID keeps file names flat: path separators and parent
// references collapse to '-'.
func sanitizeFeatureID(featureID string) string {
	replaced := strings.NewReplacer("/", "-", "\\", "-", "..", "-").Replace(featureID)
	if replaced == "" {
		return "unknown"
	}
	return replaced
}
