package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/archlayer/pkgforge/diag"
)

// condaV2Writer implements the `.conda` format: an outer, uncompressed zip
// containing exactly three members, `metadata.json` and two zstd-compressed
// tar layers — `info-pkg.tar.zst` (the info/ tree) and
// `pkg-pkg.tar.zst` (everything else) — matching the layout
// conda-package-handling introduced to let clients read just the info
// layer without downloading package payload.
type condaV2Writer struct{}

const condaFormatVersion = 2

func (condaV2Writer) Write(dest io.Writer, entries []Entry, timestamp time.Time) error {
	var infoEntries, pkgEntries []Entry
	for _, e := range entries {
		if isInfoPath(e.Path) {
			infoEntries = append(infoEntries, e)
		} else {
			pkgEntries = append(pkgEntries, e)
		}
	}

	infoLayer, err := compressedTarLayer(infoEntries, timestamp)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "compressing info layer")
	}
	pkgLayer, err := compressedTarLayer(pkgEntries, timestamp)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "compressing pkg layer")
	}

	zw := zip.NewWriter(dest)
	if err := writeZipMember(zw, "metadata.json", timestamp, condaMetadataJSON()); err != nil {
		return err
	}
	if err := writeZipMember(zw, "info-pkg.tar.zst", timestamp, infoLayer); err != nil {
		return err
	}
	if err := writeZipMember(zw, "pkg-pkg.tar.zst", timestamp, pkgLayer); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "closing .conda zip container")
	}
	return nil
}

func condaMetadataJSON() []byte {
	return []byte(`{"conda_pkg_format_version": ` + strconv.Itoa(condaFormatVersion) + `}`)
}

func writeZipMember(zw *zip.Writer, name string, timestamp time.Time, content []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store, Modified: timestamp}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "adding zip member %q", name)
	}
	_, err = w.Write(content)
	return err
}

func isInfoPath(p string) bool {
	return p == "info" || len(p) > 5 && p[:5] == "info/"
}

// compressedTarLayer writes entries as an uncompressed tar stream, then
// zstd-compresses the whole stream as one frame (matching libarchive's
// per-layer, not per-file, compression granularity).
func compressedTarLayer(entries []Entry, timestamp time.Time) ([]byte, error) {
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for _, e := range entries {
		if err := writeTarEntry(tw, e, timestamp); err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	zw, err := zstd.NewWriter(&out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(tarBuf.Bytes()); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
