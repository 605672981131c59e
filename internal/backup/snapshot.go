// Package backup writes point-in-time copies of the checklist database to a
// local directory, optionally sealed with a passphrase.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	prefix    = "castle-"
	plainExt  = ".db"
	sealedExt = ".db.enc"
	stampFmt  = "20060102T150405.000Z"
)

// Config controls where snapshots go and how many are retained.
type Config struct {
	Dir        string
	Passphrase string
	Keep       int
}

// Snapshot describes one file in the backup directory.
type Snapshot struct {
	Path      string
	Reason    string
	Sealed    bool
	Size      int64
	CreatedAt time.Time
}

type Snapshotter struct {
	db     *sql.DB
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Snapshotter {
	return &Snapshotter{db: db, cfg: cfg, logger: logger, now: time.Now}
}

// Enabled reports whether a backup directory is configured.
func (s *Snapshotter) Enabled() bool {
	return s.cfg.Dir != ""
}

// Create copies the live database with VACUUM INTO, seals it when a
// passphrase is set, and prunes snapshots beyond Keep.
func (s *Snapshotter) Create(ctx context.Context, reason string) (Snapshot, error) {
	if !s.Enabled() {
		return Snapshot{}, fmt.Errorf("backup directory not configured")
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o700); err != nil {
		return Snapshot{}, fmt.Errorf("create backup dir: %w", err)
	}

	reason = sanitizeReason(reason)
	createdAt := s.now().UTC()
	base := prefix + createdAt.Format(stampFmt) + "-" + reason
	plainPath := filepath.Join(s.cfg.Dir, base+plainExt)

	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", plainPath); err != nil {
		return Snapshot{}, fmt.Errorf("vacuum into %s: %w", plainPath, err)
	}

	snap := Snapshot{Path: plainPath, Reason: reason, CreatedAt: createdAt}
	if s.cfg.Passphrase != "" {
		sealedPath := filepath.Join(s.cfg.Dir, base+sealedExt)
		if err := sealFile(plainPath, sealedPath, s.cfg.Passphrase); err != nil {
			os.Remove(plainPath)
			return Snapshot{}, err
		}
		if err := os.Remove(plainPath); err != nil {
			return Snapshot{}, fmt.Errorf("remove unsealed snapshot: %w", err)
		}
		snap.Path = sealedPath
		snap.Sealed = true
	}

	if info, err := os.Stat(snap.Path); err == nil {
		snap.Size = info.Size()
	}

	s.logger.Info("snapshot written", "path", snap.Path, "reason", reason, "sealed", snap.Sealed, "bytes", snap.Size)

	if s.cfg.Keep > 0 {
		removed, err := Prune(s.cfg.Dir, s.cfg.Keep)
		if err != nil {
			s.logger.Warn("prune snapshots", "error", err)
		} else if removed > 0 {
			s.logger.Info("pruned old snapshots", "removed", removed)
		}
	}
	return snap, nil
}

func sealFile(src, dst, passphrase string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	sealed, err := Seal(data, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, sealed, 0o600); err != nil {
		return fmt.Errorf("write sealed snapshot: %w", err)
	}
	return nil
}

// List returns the snapshots in dir, newest first. A missing directory is
// not an error.
func List(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		snap, ok := parseName(e.Name())
		if !ok {
			continue
		}
		snap.Path = filepath.Join(dir, e.Name())
		if info, err := e.Info(); err == nil {
			snap.Size = info.Size()
		}
		snaps = append(snaps, snap)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Prune deletes all but the newest keep snapshots in dir.
func Prune(dir string, keep int) (int, error) {
	snaps, err := List(dir)
	if err != nil {
		return 0, err
	}
	if keep < 1 || len(snaps) <= keep {
		return 0, nil
	}
	removed := 0
	for _, snap := range snaps[keep:] {
		if err := os.Remove(snap.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", snap.Path, err)
		}
		removed++
	}
	return removed, nil
}

func parseName(name string) (Snapshot, bool) {
	if !strings.HasPrefix(name, prefix) {
		return Snapshot{}, false
	}
	var sealed bool
	var rest string
	switch {
	case strings.HasSuffix(name, sealedExt):
		sealed = true
		rest = strings.TrimSuffix(name, sealedExt)
	case strings.HasSuffix(name, plainExt):
		rest = strings.TrimSuffix(name, plainExt)
	default:
		return Snapshot{}, false
	}
	rest = strings.TrimPrefix(rest, prefix)

	stamp, reason, ok := strings.Cut(rest, "-")
	if !ok {
		return Snapshot{}, false
	}
	createdAt, err := time.Parse(stampFmt, stamp)
	if err != nil {
		return Snapshot{}, false
	}
	return Snapshot{Reason: reason, Sealed: sealed, CreatedAt: createdAt}, true
}

func sanitizeReason(reason string) string {
	reason = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, reason)
	if reason == "" {
		return "manual"
	}
	return reason
}
