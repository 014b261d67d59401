package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

func TestFormatExt(t *testing.T) {
	if got := FormatCondaV2.Ext(); got != ".conda" {
		t.Fatalf("FormatCondaV2.Ext() = %q", got)
	}
	if got := FormatTarBZ2.Ext(); got != ".tar.bz2" {
		t.Fatalf("FormatTarBZ2.Ext() = %q", got)
	}
}

func TestSortEntriesIsLexicalByPath(t *testing.T) {
	entries := []Entry{{Path: "info/index.json"}, {Path: "bin/tool"}, {Path: "info/about.json"}}
	SortEntries(entries)
	want := []string{"bin/tool", "info/about.json", "info/index.json"}
	for i, p := range want {
		if entries[i].Path != p {
			t.Fatalf("entries[%d].Path = %q, want %q", i, entries[i].Path, p)
		}
	}
}

func fileEntry(path, content string) Entry {
	c := []byte(content)
	return Entry{
		Path: path,
		Mode: 0o644,
		Size: int64(len(c)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(c)), nil },
	}
}

func TestCondaV2WriterProducesMetadataAndLayers(t *testing.T) {
	entries := []Entry{
		fileEntry("info/index.json", `{"name":"foo"}`),
		fileEntry("bin/foo", "#!/bin/sh\necho hi\n"),
	}
	var buf bytes.Buffer
	if err := NewWriter(FormatCondaV2).Write(&buf, entries, time.Unix(0, 0)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"metadata.json", "info-pkg.tar.zst", "pkg-pkg.tar.zst"} {
		if !names[want] {
			t.Errorf("missing zip member %q, got %v", want, names)
		}
	}
}

func TestWriteTarEntryRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeTarEntry(tw, fileEntry("bin/foo", "payload"), time.Unix(100, 0)); err != nil {
		t.Fatalf("writeTarEntry: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("tr.Next: %v", err)
	}
	if hdr.Name != "bin/foo" {
		t.Fatalf("hdr.Name = %q", hdr.Name)
	}
	content, err := io.ReadAll(tr)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "payload" {
		t.Fatalf("content = %q", content)
	}
}
