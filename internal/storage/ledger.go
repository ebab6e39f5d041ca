package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"watchpost/internal/activity"
	logx "watchpost/pkg/logx"
)

var ErrClosed = errors.New("ledger closed")

// Config configures the ledger file.
type Config struct {
	Path string
	// MaxRecords caps the number of lines kept after each Record.
	MaxRecords int
}

// Ledger is the durable set of already delivered activity identities.
//
// Every Contains re-reads the file so the on-disk state stays the single
// source of truth; there is no in-memory cache.
type Ledger struct {
	log logx.Logger

	mu   sync.Mutex
	path string
	max  int
	file *os.File // append handle
}

// OpenLedger opens or creates the ledger file (and its parent directory).
func OpenLedger(cfg Config, log logx.Logger) (*Ledger, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	if cfg.MaxRecords <= 0 {
		return nil, fmt.Errorf("ledger max records must be > 0, got %d", cfg.MaxRecords)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger dir: %w", err)
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &Ledger{log: log, path: path, max: cfg.MaxRecords, file: f}, nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return f, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Contains reports whether id has already been recorded.
func (l *Ledger) Contains(ctx context.Context, id activity.Identity) (bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return false, ErrClosed
	}
	lines, err := readLines(l.path)
	if err != nil {
		return false, err
	}
	want := id.String()
	for _, line := range lines {
		if line == want {
			return true, nil
		}
	}
	return false, nil
}

// Record appends id and trims the file to the newest MaxRecords lines.
func (l *Ledger) Record(ctx context.Context, id activity.Identity) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrClosed
	}

	line := id.String() + "\n"
	partial, err := endsMidLine(l.path)
	if err != nil {
		return err
	}
	if partial {
		line = "\n" + line
	}
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}

	lines, err := readLines(l.path)
	if err != nil {
		return err
	}
	if len(lines) <= l.max {
		return nil
	}
	keep := lines[len(lines)-l.max:]
	if err := l.rewriteLocked(keep); err != nil {
		return err
	}
	l.log.Debug("ledger trimmed", logx.Int("dropped", len(lines)-len(keep)), logx.Int("kept", len(keep)))
	return nil
}

// endsMidLine reports whether the file is non-empty and lacks a final
// newline, as after a hand edit.
func endsMidLine(path string) (bool, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat ledger: %w", err)
	}
	if st.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return false, fmt.Errorf("read ledger: %w", err)
	}
	return last[0] != '\n', nil
}

// Entries returns the recorded identities, oldest first.
func (l *Ledger) Entries(ctx context.Context) ([]string, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil, ErrClosed
	}
	return readLines(l.path)
}

// rewriteLocked replaces the file content with lines via temp file + rename,
// then reopens the append handle on the new inode.
func (l *Ledger) rewriteLocked(lines []string) error {
	tmp := l.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("trim ledger: %w", err)
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("trim ledger: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("trim ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("trim ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("trim ledger: %w", err)
	}

	nf, err := openAppend(l.path)
	if err != nil {
		return err
	}
	_ = l.file.Close()
	l.file = nf
	return nil
}

// readLines returns the non-empty lines of path. A missing file has no lines.
func readLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	raw := strings.Split(string(b), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
