package persistence

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/enygma/pkg/errors"
)

const fileExtension = ".json"

// FileStore keeps one JSON file per configuration in a directory.
type FileStore struct {
	dir    string
	logger ectologger.Logger
}

func NewFileStore(dir string, logger ectologger.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, KeyPrefix+name+fileExtension)
}

// Save writes the configuration through a temporary file so a crash never
// leaves a truncated payload behind.
func (s *FileStore) Save(ctx context.Context, cfg SavedConfiguration) error {
	if err := ValidateName(cfg.Name); err != nil {
		return err
	}

	data, err := Encode(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, KeyPrefix+"*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path(cfg.Name)); err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"name":  cfg.Name,
		"bytes": len(data),
	}).Debug("configuration saved to file")
	return nil
}

func (s *FileStore) Load(ctx context.Context, name string) (SavedConfiguration, bool) {
	if err := ValidateName(name); err != nil {
		return SavedConfiguration{}, false
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithContext(ctx).WithError(err).WithField("name", name).Error("failed to read saved configuration")
		}
		return SavedConfiguration{}, false
	}

	cfg, err := Decode(data)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("name", name).Warn("ignoring corrupt saved configuration")
		return SavedConfiguration{}, false
	}
	return cfg, true
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(file, KeyPrefix) || !strings.HasSuffix(file, fileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(file, KeyPrefix), fileExtension))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewChainError(errors.CodeNotFound, "saved configuration not found").AddField("name")
		}
		return err
	}
	return nil
}
