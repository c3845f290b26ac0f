package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cutroom/cutroom-agent/internal/encoder"
	"github.com/cutroom/cutroom-agent/internal/logging"
)

// Library is the contract the API layer and the timeline core consume.
type Library interface {
	Import(ctx context.Context, path string) (*Media, error)
	Remove(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Media, error)
	List(ctx context.Context) ([]*Media, error)
	Count(ctx context.Context) (int, error)
	AddWatchFolder(ctx context.Context, path string) (*WatchFolder, error)
	WatchFolders(ctx context.Context) ([]*WatchFolder, error)
}

type Service struct {
	repo   Repository
	prober encoder.Prober
	logger *slog.Logger
}

func NewService(repo Repository, prober encoder.Prober, logger *slog.Logger) *Service {
	return &Service{repo: repo, prober: prober, logger: logger}
}

// Import registers a source file: stat, probe, persist. A file that cannot be
// probed cannot later be placed on the timeline, so the import fails instead
// of storing a half-known row. Importing an already-known path returns the
// existing media unchanged.
func (s *Service) Import(ctx context.Context, path string) (*Media, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("file does not exist: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a media file")
	}

	existing, err := s.repo.GetMediaByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	meta, err := s.prober.Probe(ctx, absPath)
	if err != nil {
		return nil, err
	}

	media := &Media{
		ID:          NewID(),
		Path:        absPath,
		Filename:    filepath.Base(absPath),
		SizeBytes:   info.Size(),
		DurationSec: meta.DurationSec,
		Width:       meta.Width,
		Height:      meta.Height,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateMedia(ctx, media); err != nil {
		return nil, err
	}

	if s.logger != nil {
		logging.WithMediaID(s.logger, media.ID).Info("media imported",
			"filename", media.Filename,
			"duration_sec", media.DurationSec,
		)
	}
	return media, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	return s.repo.DeleteMedia(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.GetMedia(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Media, error) {
	return s.repo.ListMedia(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountMedia(ctx)
}

// AddWatchFolder registers a directory for automatic import. The watcher picks
// the folder up separately; this only validates and persists it.
func (s *Service) AddWatchFolder(ctx context.Context, path string) (*WatchFolder, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory")
	}

	existing, err := s.repo.GetWatchFolderByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	folder := &WatchFolder{
		ID:        NewID(),
		Path:      absPath,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateWatchFolder(ctx, folder); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("watch folder added", "path", absPath)
	}
	return folder, nil
}

func (s *Service) WatchFolders(ctx context.Context) ([]*WatchFolder, error) {
	return s.repo.ListWatchFolders(ctx)
}

// SourceDuration adapts the library to the timeline store's read-only view.
// Media the repository cannot find, or a repository error, both read as an
// unknown source: the clip simply cannot be placed.
func (s *Service) SourceDuration(sourceID string) (float64, bool) {
	m, err := s.repo.GetMedia(context.Background(), sourceID)
	if err != nil || m == nil {
		return 0, false
	}
	return m.DurationSec, true
}
