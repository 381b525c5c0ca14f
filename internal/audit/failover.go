package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var ErrSpoolFull = errors.New("audit spool full")

const spoolFile = "audit_spool.log"

// Spool is a local JSONL buffer for audit events the database refused.
type Spool struct {
	dir      string
	maxBytes int64

	mu sync.Mutex
}

func NewSpool(dir string, maxMB int64) (*Spool, error) {
	if maxMB <= 0 {
		maxMB = 1024
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create audit spool dir: %w", err)
	}
	return &Spool{dir: dir, maxBytes: maxMB * 1024 * 1024}, nil
}

func (s *Spool) Append(evt Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size() >= s.maxBytes {
		return ErrSpoolFull
	}

	line, err := json.Marshal(spooledEvent{
		EventID:   evt.EventID.String(),
		CompanyID: evt.CompanyID.String(),
		Payload:   evt,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, spoolFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

func (s *Spool) size() int64 {
	var size int64
	filepath.WalkDir(s.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

// take moves the current spool aside so new failures append to a fresh file.
func (s *Spool) take() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := filepath.Join(s.dir, spoolFile)
	info, err := os.Stat(current)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	replay := filepath.Join(s.dir, fmt.Sprintf("replay_%d.log", time.Now().UnixNano()))
	if err := os.Rename(current, replay); err != nil {
		return "", err
	}
	return replay, nil
}

// StartReplayer flushes the spool periodically until ctx is done.
func (s *Service) StartReplayer(ctx context.Context, every time.Duration) {
	if s.spool == nil {
		return
	}
	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.ReplaySpool(ctx)
			}
		}
	}()
}

// ReplaySpool re-inserts spooled events. Events that fail again are re-spooled
// by WriteEvent, so the replay file can always be removed.
func (s *Service) ReplaySpool(ctx context.Context) int {
	if s.spool == nil {
		return 0
	}
	replayFile, err := s.spool.take()
	if err != nil {
		s.log.Error().Err(err).Msg("rotating audit spool for replay failed")
		return 0
	}
	if replayFile == "" {
		return 0
	}
	defer os.Remove(replayFile)

	f, err := os.Open(replayFile)
	if err != nil {
		s.log.Error().Err(err).Msg("opening audit replay file failed")
		return 0
	}
	defer f.Close()

	var flushed, skipped int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var se spooledEvent
		if err := json.Unmarshal(scanner.Bytes(), &se); err != nil {
			skipped++
			continue
		}
		if err := s.insert(ctx, se.Payload); err != nil {
			_ = s.spool.Append(se.Payload)
			continue
		}
		flushed++
	}

	if flushed > 0 || skipped > 0 {
		s.log.Info().Int("flushed", flushed).Int("skipped", skipped).Msg("audit spool replayed")
	}
	return flushed
}
