package pipeline

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/loadkit/pkg/domain"
)

type entry struct {
	item domain.Item
	raw  []byte
}

// IsZip reports whether name has a .zip extension (case-insensitive).
func IsZip(name string) bool {
	return strings.EqualFold(ext(name), "zip")
}

func ext(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

// unzip returns every regular file of the archive, sorted by name.
func unzip(item domain.Item, raw []byte) ([]entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.NewLoadError("ZipError", err)
	}

	files := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	entries := make([]entry, 0, len(files))
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, domain.NewLoadError("ZipError", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, domain.NewLoadError("ZipError", err)
		}
		entries = append(entries, entry{
			item: domain.Item{Name: item.Name + "/" + f.Name, Filename: f.Name},
			raw:  content,
		})
	}
	return entries, nil
}
