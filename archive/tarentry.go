package archive

import (
	"archive/tar"
	"io"
	"time"

	"github.com/archlayer/pkgforge/diag"
)

// writeTarEntry appends one Entry to an open tar stream, stamping mtime
// to timestamp for every entry regardless of its real filesystem time
// (spec.md §4.9 "reproducibility timestamp": "all archive entries use the
// configured timestamp as mtime").
func writeTarEntry(tw *tar.Writer, e Entry, timestamp time.Time) error {
	hdr := &tar.Header{
		Name:    e.Path,
		Mode:    int64(e.Mode),
		ModTime: timestamp,
	}

	switch {
	case e.IsDir:
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"
	case e.IsSymlink:
		hdr.Typeflag = tar.TypeSymlink
		hdr.Linkname = e.LinkTarget
	default:
		hdr.Typeflag = tar.TypeReg
		hdr.Size = e.Size
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "writing tar header for %q", e.Path)
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	r, err := e.Open()
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "opening %q for archiving", e.Path)
	}
	defer r.Close()
	if _, err := io.Copy(tw, r); err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "writing tar body for %q", e.Path)
	}
	return nil
}
