package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/pkg/errors"

	"route-tracker/internal/repository"
)

// ExportService packs every saved route file into a zip archive so the whole
// collection can be backed up or moved to another device.
type ExportService struct {
	dir string
}

func NewExportService(dir string) *ExportService {
	return &ExportService{dir: dir}
}

// ExportAll writes a zip of all route files to w.
func (s *ExportService) ExportAll(ctx context.Context, w io.Writer) error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return errors.Wrap(err, "read route directory")
	}

	names := make(map[string]string)
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasPrefix(de.Name(), repository.FilePrefix) {
			continue
		}
		names[filepath.Join(s.dir, de.Name())] = de.Name() + ".json"
	}

	files, err := archives.FilesFromDisk(ctx, nil, names)
	if err != nil {
		return errors.Wrap(err, "collect route files")
	}

	zip := archives.Zip{}
	if err := zip.Archive(ctx, w, files); err != nil {
		return errors.Wrap(err, "archive route files")
	}
	return nil
}
