package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/xwerkax/BloomlyApp/internal/domain/errs"
	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

// FileStore keeps artifacts as JSON files in one directory.
type FileStore struct {
	dir string
	log *logger.Logger
}

func NewFileStore(dir string, baseLog *logger.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("artifact dir required: %w", errs.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &FileStore{dir: dir, log: baseLog.With("store", "FileArtifactStore")}, nil
}

func (s *FileStore) path(plantID uuid.UUID) string {
	return filepath.Join(s.dir, objectName(plantID))
}

func (s *FileStore) Get(ctx context.Context, plantID uuid.UUID) (*Artifact, error) {
	raw, err := os.ReadFile(s.path(plantID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return Decode(raw)
}

// Put writes to a temp file in the same directory, syncs it and renames it over
// the live file. A crash before the rename leaves the old artifact in place.
func (s *FileStore) Put(ctx context.Context, a *Artifact) error {
	raw, err := Encode(a)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+objectName(a.PlantID)+"-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path(a.PlantID)); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, plantID uuid.UUID) (bool, error) {
	_, err := os.Stat(s.path(plantID))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	var out []Summary
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := plantIDFromName(e.Name())
		if !ok {
			continue
		}
		a, err := s.Get(ctx, id)
		if err != nil {
			s.log.Warn("Skipping unreadable artifact", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, a.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlantID.String() < out[j].PlantID.String() })
	return out, nil
}
