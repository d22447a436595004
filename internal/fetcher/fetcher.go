// Package fetcher brings source documents into the pipeline: local drop
// directories and FTP drop folders, with PDF validation gating intake.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/docintake/internal/config"
)

// Document is one fetched source file, staged locally and ready for OCR.
// SourceKey is the canonical origin (absolute path or FTP URL) and is what
// the dedup store tracks.
type Document struct {
	SourceKey string
	LocalPath string
	Cleanup   func()
}

// Fetcher stages documents from configured sources.
type Fetcher struct {
	cfg config.IntakeConfig
	ftp *FTPFetcher
}

func New(cfg config.IntakeConfig) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		ftp: NewFTPFetcher(FTPOptions{Timeout: cfg.FTPTimeout()}),
	}
}

// Fetch stages a single document reference: an ftp:// URL is downloaded to
// the temp dir; anything else is treated as a local path and used in place.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Document, error) {
	var doc *Document

	if strings.HasPrefix(ref, "ftp://") {
		local, err := f.downloadToTemp(ctx, ref)
		if err != nil {
			return nil, err
		}
		doc = &Document{
			SourceKey: ref,
			LocalPath: local,
			Cleanup:   func() { os.Remove(local) },
		}
	} else {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: resolve %s", ref)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, eris.Wrapf(err, "fetcher: stat %s", abs)
		}
		doc = &Document{SourceKey: abs, LocalPath: abs, Cleanup: func() {}}
	}

	if f.cfg.ValidatePDF {
		if _, err := ValidatePDF(doc.LocalPath); err != nil {
			doc.Cleanup()
			return nil, err
		}
	}
	return doc, nil
}

// Sweep lists every pending document reference across the configured local
// directories and FTP drop folders. Listing is shallow: drop folders are
// flat by convention.
func (f *Fetcher) Sweep(ctx context.Context) ([]string, error) {
	var refs []string

	for _, dir := range f.cfg.LocalDirs {
		local, err := listLocalPDFs(dir)
		if err != nil {
			return nil, err
		}
		refs = append(refs, local...)
	}

	for _, dirURL := range f.cfg.FTPURLs {
		remote, err := f.ftp.ListPDFs(ctx, dirURL)
		if err != nil {
			return nil, err
		}
		refs = append(refs, remote...)
	}

	return refs, nil
}

func (f *Fetcher) downloadToTemp(ctx context.Context, ftpURL string) (string, error) {
	tmp, err := os.CreateTemp(f.cfg.TempDir, "docintake-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create temp file")
	}
	tmp.Close()

	if _, err := f.ftp.DownloadToFile(ctx, ftpURL, tmp.Name()); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func listLocalPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: resolve %s", e.Name())
		}
		paths = append(paths, abs)
	}
	return paths, nil
}
