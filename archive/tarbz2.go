package archive

import (
	"archive/tar"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/archlayer/pkgforge/diag"
)

// tarBZ2Writer implements the classic `.tar.bz2` format. The standard
// library's compress/bzip2 is decode-only, and no pure-Go bzip2 encoder
// appears anywhere in the retrieved corpus, so this shells out to the
// system `bzip2` binary the same way postprocess/bytecode.go shells out to
// a Python interpreter — an external-process suspension point rather than
// an in-process codec (documented in DESIGN.md).
type tarBZ2Writer struct{}

func (tarBZ2Writer) Write(dest io.Writer, entries []Entry, timestamp time.Time) error {
	cmd := exec.CommandContext(context.Background(), "bzip2", "-c")
	bzIn, err := cmd.StdinPipe()
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "opening bzip2 stdin pipe")
	}
	cmd.Stdout = dest

	if err := cmd.Start(); err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "starting bzip2")
	}

	tw := tar.NewWriter(bzIn)
	var writeErr error
	for _, e := range entries {
		if writeErr = writeTarEntry(tw, e, timestamp); writeErr != nil {
			break
		}
	}
	if writeErr == nil {
		writeErr = tw.Close()
	}
	bzIn.Close()

	if err := cmd.Wait(); err != nil {
		if writeErr != nil {
			return writeErr
		}
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "bzip2 compression failed")
	}
	return writeErr
}
