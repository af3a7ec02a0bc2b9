package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
)

// Local stores files on disk under dir. The API serves them under baseURL.
type Local struct {
	dir     string
	baseURL string
}

var _ core.FileStorage = (*Local)(nil)

func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *Local) Dir() string { return s.dir }

func (s *Local) Put(_ context.Context, path string, data []byte, _ string, _ map[string]string) (string, error) {
	clean := filepath.Clean("/" + path)[1:]
	if clean == "" {
		return "", errors.New("empty file path")
	}
	fp := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating directory")
	}
	if err := os.WriteFile(fp, data, 0o644); err != nil {
		return "", errors.Wrap(err, "writing file")
	}
	return s.baseURL + "/" + clean, nil
}
