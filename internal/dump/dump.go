// Package dump collects the Kolla configuration, logs and the output of
// kollacli's list commands into a gzipped tarball for support.
package dump

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	xlog "github.com/shinji-kodama/kollacli/internal/log"
	"github.com/shinji-kodama/kollacli/internal/model"
)

// Source is a file or directory to archive under Name.
type Source struct {
	Path string
	Name string
}

// Section is one command whose output goes into the cmds_output entry.
type Section struct {
	Title string
	Run   func(ctx context.Context) (string, error)
}

// Options describes what a dump contains.
type Options struct {
	Sources  []Source
	Sections []Section

	// Dir is where the tarball is created; empty means os.TempDir().
	Dir string
}

// excluded holds names that never go into a dump: service passwords and
// the admin user's SSH keys.
var excluded = map[string]bool{
	"passwords.yml": true,
	".ssh":          true,
}

// CmdsOutputName is the archive entry holding command output.
const CmdsOutputName = "kolla/cmds_output"

// Create writes a kollacli_dump_*.tgz and returns its path. Sources that
// do not exist are skipped. A failing section is recorded in the output
// and does not fail the dump.
func Create(ctx context.Context, opts Options) (string, error) {
	logger := xlog.WithComponent("dump")

	f, err := os.CreateTemp(opts.Dir, "kollacli_dump_*.tgz")
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError, "failed to create dump file", err)
	}
	dumpPath := f.Name()

	if err := write(ctx, f, opts, logger); err != nil {
		_ = f.Close()
		_ = os.Remove(dumpPath)
		return "", model.WrapCLIError(model.ExitGeneralError, "dump failed", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dumpPath)
		return "", model.WrapCLIError(model.ExitGeneralError, "dump failed", err)
	}

	logger.Info().Str("path", dumpPath).Msg("dump successful")
	return dumpPath, nil
}

func write(ctx context.Context, w io.Writer, opts Options, logger zerolog.Logger) error {
	gzw := gzip.NewWriter(w)
	tw := tar.NewWriter(gzw)

	for _, src := range opts.Sources {
		if _, err := os.Lstat(src.Path); os.IsNotExist(err) {
			logger.Debug().Str("path", src.Path).Msg("skipping missing dump source")
			continue
		}
		if err := addTree(tw, src.Path, src.Name); err != nil {
			return err
		}
	}

	if len(opts.Sections) > 0 {
		if err := addBytes(tw, CmdsOutputName, []byte(runSections(ctx, opts.Sections))); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gzw.Close()
}

// runSections renders each section as a shell transcript.
func runSections(ctx context.Context, sections []Section) string {
	var b strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&b, "\n\n$ %s\n", s.Title)
		out, err := s.Run(ctx)
		if err != nil {
			fmt.Fprintf(&b, "Error message: %v\n", err)
		}
		if out != "" {
			b.WriteString(strings.TrimRight(out, "\n"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// addTree archives root (a file or directory) under name.
func addTree(tw *tar.Writer, root, name string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if excluded[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entry := name
		if rel != "." {
			entry = path.Join(name, filepath.ToSlash(rel))
		}
		return addEntry(tw, p, entry, d)
	})
}

func addEntry(tw *tar.Writer, p, entry string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	link := ""
	if info.Mode()&os.ModeSymlink != 0 {
		if link, err = os.Readlink(p); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = entry
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	// #nosec G304 -- paths come from the configured Kolla directories
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = io.Copy(tw, f)
	return err
}

func addBytes(tw *tar.Writer, name string, data []byte) error {
	if err := tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(data)),
		Typeflag: tar.TypeReg,
	}); err != nil {
		return err
	}
	_, err := tw.Write(data)
	return err
}
