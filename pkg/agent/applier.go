package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/digest"
	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// Downloader streams a named package from the server.
type Downloader interface {
	Download(ctx context.Context, name string, w io.Writer) (int64, error)
}

// Applier downloads packages and unpacks them next to the archive.
//
// The archive is staged at <dir>/.<name>.part and only moved to <dir>/<name>
// after extraction succeeds, so a failed apply leaves the previous archive
// (and therefore a hash mismatch) in place for the next pass.
type Applier struct {
	fs     afero.Fs
	dir    string
	source Downloader
}

// NewApplier returns an applier writing into dir.
func NewApplier(fs afero.Fs, dir string, source Downloader) *Applier {
	return &Applier{fs: fs, dir: dir, source: source}
}

// ExtractDir returns the directory entry is unpacked into.
func (a *Applier) ExtractDir(entry types.PackageEntry) string {
	return filepath.Join(a.dir, entry.DirName())
}

// Apply downloads entry, extracts it additively and installs the archive.
// It returns the number of bytes downloaded.
func (a *Applier) Apply(ctx context.Context, entry types.PackageEntry) (int64, error) {
	if err := validEntryName(entry); err != nil {
		return 0, err
	}
	if err := a.fs.MkdirAll(a.dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating target dir: %w", err)
	}

	base := entry.BaseName()
	final := filepath.Join(a.dir, base)
	staged := filepath.Join(a.dir, "."+base+".part")
	defer func() { _ = a.fs.Remove(staged) }()

	n, sum, err := a.download(ctx, base, staged)
	if err != nil {
		return n, err
	}
	if entry.Hash != "" && !digest.Equal(sum, entry.Hash) {
		return n, fmt.Errorf("%w: %s: got %s, want %s", ErrHashMismatch, base, sum, entry.Hash)
	}

	if err := a.extract(staged, a.ExtractDir(entry)); err != nil {
		return n, fmt.Errorf("extracting %s: %w", base, err)
	}

	if err := a.fs.Rename(staged, final); err != nil {
		return n, fmt.Errorf("installing %s: %w", base, err)
	}
	return n, nil
}

func (a *Applier) download(ctx context.Context, name, staged string) (int64, string, error) {
	f, err := a.fs.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, "", fmt.Errorf("creating %s: %w", staged, err)
	}

	n, err := a.source.Download(ctx, name, f)
	if err != nil {
		_ = f.Close()
		return n, "", fmt.Errorf("downloading %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return n, "", fmt.Errorf("syncing %s: %w", staged, err)
	}
	if err := f.Close(); err != nil {
		return n, "", fmt.Errorf("closing %s: %w", staged, err)
	}

	sum, err := digest.File(a.fs, staged)
	if err != nil {
		return n, "", err
	}
	return n, sum, nil
}

// extract unpacks archive into dest. Existing files are overwritten and
// files absent from the archive are left alone. Every entry is validated
// before anything is written.
func (a *Applier) extract(archive, dest string) error {
	f, err := a.fs.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return err
	}

	targets := make([]string, len(zr.File))
	for i, zf := range zr.File {
		target, err := entryTarget(dest, zf.Name)
		if err != nil {
			return err
		}
		targets[i] = target
	}

	if err := a.fs.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for i, zf := range zr.File {
		target := targets[i]
		if target == dest {
			continue
		}
		if zf.FileInfo().IsDir() {
			if err := a.fs.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := a.writeEntry(zf, target); err != nil {
			return fmt.Errorf("%s: %w", zf.Name, err)
		}
	}
	return nil
}

func (a *Applier) writeEntry(zf *zip.File, target string) error {
	if err := a.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := a.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// entryTarget maps an archive entry name to a path inside dest.
func entryTarget(dest, name string) (string, error) {
	rel := strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(filepath.FromSlash(rel)) || filepath.VolumeName(filepath.FromSlash(rel)) != "" {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}

	target := filepath.Join(dest, filepath.FromSlash(rel))
	if target != dest && !strings.HasPrefix(target, dest+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchive, name)
	}
	return target, nil
}
