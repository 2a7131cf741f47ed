package chart

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/Chirantan-Dey/quiz-master/internal/domain"
)

var audiences = []string{"admin", "user"}

func scopePrefix(kind domain.ChartKind, accountID *int64) string {
	if accountID != nil {
		return string(kind) + "_" + strconv.FormatInt(*accountID, 10) + "_"
	}
	return string(kind) + "_"
}

func (s *Service) ext() (string, string) {
	if s.cfg.Format == "webp" {
		return "webp", "image/webp"
	}
	return "png", "image/png"
}

// publish writes img to a temp file, syncs it and renames it into place.
func (s *Service) publish(kind domain.ChartKind, accountID *int64, img image.Image, now time.Time) (*Artifact, error) {
	dir := filepath.Join(s.cfg.Root, kind.Audience())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}

	ext, contentType := s.ext()
	name := scopePrefix(kind, accountID) + strconv.FormatInt(now.UnixNano(), 10) + "." + ext
	final := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := s.encode(w, img); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("encode %s: %w", ext, err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, final); err != nil {
		return nil, fmt.Errorf("rename: %w", err)
	}
	published = true

	return &Artifact{
		Kind:        kind,
		AccountID:   accountID,
		Path:        final,
		Name:        name,
		ContentType: contentType,
		CreatedAt:   now,
	}, nil
}

func (s *Service) encode(w *bufio.Writer, img image.Image) error {
	if s.cfg.Format == "webp" {
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// sweep removes files older than the retention window. When kind is set it
// also removes every earlier artifact of that kind and scope.
func (s *Service) sweep(ctx context.Context, now time.Time, kind domain.ChartKind, accountID *int64) (int, error) {
	cutoff := now.Add(-s.cfg.Retention)
	prefix := ""
	if kind != "" {
		prefix = scopePrefix(kind, accountID)
	}

	removed := 0
	for _, aud := range audiences {
		dir := filepath.Join(s.cfg.Root, aud)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("read %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}

			stale := info.ModTime().Before(cutoff)
			superseded := prefix != "" && aud == kind.Audience() && strings.HasPrefix(e.Name(), prefix)
			if !stale && !superseded {
				continue
			}

			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				s.log.WarnContext(ctx, "chart remove failed", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			removed++
		}
	}

	if removed > 0 {
		s.log.DebugContext(ctx, "charts swept", slog.Int("removed", removed))
	}
	return removed, nil
}
