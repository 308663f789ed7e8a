package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/spf13/afero"
)

// Repository loads and saves settings. The scheduler saves through it after a
// successful backup; the event loop loads through it on reload.
type Repository interface {
	Load() (*Settings, error)
	Save(*Settings) error
}

// File is a Repository backed by a YAML file.
type File struct {
	fs   afero.Fs
	path string
	log  logger.Logger
}

// NewFile returns a Repository for the settings file at path.
func NewFile(fs afero.Fs, path string, l logger.Logger) *File {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &File{fs: fs, path: path, log: l}
}

// Path returns the settings file path.
func (f *File) Path() string { return f.path }

// Load reads the settings file, writing the defaults first when it does not
// exist yet. The containing directory must exist.
func (f *File) Load() (*Settings, error) {
	dir := filepath.Dir(f.path)
	if fi, err := f.fs.Stat(dir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("config dir %s: %w", dir, os.ErrNotExist)
	}

	exists, err := afero.Exists(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("stat settings: %w", err)
	}
	if !exists {
		f.log.Info("creating default settings file %s", f.path)
		if err := f.Save(Default()); err != nil {
			return nil, err
		}
	}

	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.path, err)
	}
	f.log.Debug("settings loaded: %d job(s)", len(s.Jobs))
	return s, nil
}

// Save writes s to a temporary file next to the settings file and renames it
// into place.
func (f *File) Save(s *Settings) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("replace settings: %w", err)
	}
	f.log.Debug("settings saved")
	return nil
}

// IsNotExist reports whether err means the config dir or file is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

var _ Repository = (*File)(nil)
