package agent

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/output"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Inventory summarizes the packages installed in dir: one tree per archive,
// counting the files and bytes of its extraction directory.
func Inventory(dir string) ([]output.PackageTree, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []output.PackageTree{}, nil
		}
		return nil, err
	}

	trees := []output.PackageTree{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		entry := types.PackageEntry{Name: e.Name()}
		tree := output.PackageTree{
			Name: e.Name(),
			Dir:  filepath.Join(dir, entry.DirName()),
		}
		if tree.Dir == filepath.Join(dir, e.Name()) {
			// No extension, nothing extracted beside it.
			continue
		}

		files, bytes, err := walkTree(tree.Dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			tree.Missing = true
		case err != nil:
			return nil, err
		}
		tree.Files = files
		tree.Bytes = bytes
		trees = append(trees, tree)
	}

	sort.Slice(trees, func(i, j int) bool { return trees[i].Name < trees[j].Name })
	return trees, nil
}

func walkTree(root string) (files, bytes int64, err error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		return 0, 0, fs.ErrNotExist
	}

	var fileCount, byteCount atomic.Int64
	conf := fastwalk.Config{
		Follow: false,
	}
	err = fastwalk.Walk(&conf, root, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are left out of the summary
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // entry vanished during the walk
		}
		fileCount.Add(1)
		byteCount.Add(info.Size())
		return nil
	})
	return fileCount.Load(), byteCount.Load(), err
}
