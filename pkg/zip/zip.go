// Package zip packages a finished output tree into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// WriteArchive streams every regular file under root into w as one zip
// archive, with paths relative to root. Entries are written in sorted order
// so identical trees archive identically.
func WriteArchive(w io.Writer, root string) error {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("zip: walk tree: %w", err)
	}
	sort.Strings(files)

	zw := zip.NewWriter(w)
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("zip: relativize %s: %w", path, err)
		}
		entry, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("zip: create entry %s: %w", rel, err)
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("zip: open %s: %w", path, err)
		}
		_, err = io.Copy(entry, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("zip: write entry %s: %w", rel, err)
		}
	}
	return zw.Close()
}

// ArchiveTree is the in-memory convenience form of WriteArchive.
func ArchiveTree(root string) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteArchive(buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
