package inventory

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quailyquaily/spoolkeeper/db/models"
	"github.com/quailyquaily/spoolkeeper/internal/pathutil"
)

const defaultJournalRotateBytes = 100 * 1024 * 1024

// JSONLJournal appends committed usage events to a JSON-lines file and
// rotates it to <path>.<UTC timestamp> once it would exceed RotateMaxBytes.
type JSONLJournal struct {
	Path           string
	RotateMaxBytes int64

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64
	now  func() time.Time
}

type journalRecord struct {
	OpID string `json:"op_id"`
	models.UsageEvent
}

func NewJSONLJournal(path string, rotateMaxBytes int64) (*JSONLJournal, error) {
	path = pathutil.ExpandHomePath(path)
	if path == "" {
		return nil, fmt.Errorf("missing journal path")
	}
	if rotateMaxBytes <= 0 {
		rotateMaxBytes = defaultJournalRotateBytes
	}
	j := &JSONLJournal{Path: path, RotateMaxBytes: rotateMaxBytes, now: time.Now}
	if err := j.openLocked(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *JSONLJournal) Emit(ctx context.Context, opID string, e models.UsageEvent) error {
	_ = ctx
	if j == nil {
		return nil
	}
	b, err := json.Marshal(journalRecord{OpID: opID, UsageEvent: e})
	if err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.rotateIfNeededLocked(int64(len(b)) + 1); err != nil {
		return err
	}
	if j.w == nil {
		return fmt.Errorf("journal is closed")
	}
	n, err := j.w.Write(append(b, '\n'))
	if err != nil {
		return err
	}
	j.size += int64(n)
	return j.w.Flush()
}

func (j *JSONLJournal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f, j.w, j.size = nil, nil, 0
	return err
}

func (j *JSONLJournal) openLocked() error {
	if dir := filepath.Dir(j.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(j.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if st, err := f.Stat(); err == nil {
		j.size = st.Size()
	}
	j.f = f
	j.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

func (j *JSONLJournal) rotateIfNeededLocked(addBytes int64) error {
	if j.RotateMaxBytes <= 0 || j.size == 0 || j.size+addBytes <= j.RotateMaxBytes {
		return nil
	}
	if j.w != nil {
		_ = j.w.Flush()
	}
	if j.f != nil {
		_ = j.f.Close()
	}
	j.f, j.w, j.size = nil, nil, 0

	now := time.Now
	if j.now != nil {
		now = j.now
	}
	rotated := j.Path + "." + now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(j.Path, rotated); err != nil {
		// Keep appending to the current file rather than dropping events.
		return j.openLocked()
	}
	return j.openLocked()
}
