package channel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalBackendUploadThenReindex(t *testing.T) {
	root := t.TempDir()
	target := Target{Scheme: "file", Root: root}
	backend := LocalBackend{}
	ctx := context.Background()

	pkg := Package{
		Filename: "foo-1.0-habc123_0.conda",
		Subdir:   "linux-64",
		Name:     "foo",
		Version:  "1.0",
		Data:     []byte("fake archive bytes"),
	}
	if err := backend.Upload(ctx, target, pkg); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := backend.Reindex(ctx, target, "linux-64"); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "linux-64", "repodata.json"))
	if err != nil {
		t.Fatalf("reading repodata.json: %v", err)
	}
	var doc repodataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshaling repodata.json: %v", err)
	}
	if _, ok := doc.PackagesConda[pkg.Filename]; !ok {
		t.Fatalf("repodata.json missing %q: %+v", pkg.Filename, doc.PackagesConda)
	}
}

func TestLocalBackendHighestBuildNumber(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "linux-64")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	names := []string{
		"foo-1.0-habc123_0.conda",
		"foo-1.0-habc123_3.conda",
		"foo-1.0-hdef456_1.tar.bz2",
		"bar-1.0-hzzz999_9.conda",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	backend := LocalBackend{}
	n, err := backend.HighestBuildNumber(context.Background(), Target{Root: root}, "foo", "1.0")
	if err != nil {
		t.Fatalf("HighestBuildNumber: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d, want 3", n)
	}
}

func TestLocalBackendHighestBuildNumberNoMatch(t *testing.T) {
	backend := LocalBackend{}
	n, err := backend.HighestBuildNumber(context.Background(), Target{Root: t.TempDir()}, "foo", "1.0")
	if err != nil {
		t.Fatalf("HighestBuildNumber: %v", err)
	}
	if n != -1 {
		t.Fatalf("got %d, want -1", n)
	}
}

func TestRewriteBuildNumberInFilename(t *testing.T) {
	cases := []struct {
		in, want string
		next     int64
	}{
		{"foo-1.0-habc123_0.conda", "foo-1.0-habc123_4.conda", 4},
		{"foo-1.0-habc123_0.tar.bz2", "foo-1.0-habc123_4.tar.bz2", 4},
	}
	for _, c := range cases {
		if got := rewriteBuildNumberInFilename(c.in, c.next); got != c.want {
			t.Errorf("rewriteBuildNumberInFilename(%q, %d) = %q, want %q", c.in, c.next, got, c.want)
		}
	}
}

func TestPublishIncrementsBuildNumber(t *testing.T) {
	root := t.TempDir()
	target := Target{Root: root}
	dir := filepath.Join(root, "linux-64")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "foo-1.0-hold000_2.conda"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	pkg := Package{
		Filename: "foo-1.0-hnew111_0.conda",
		Subdir:   "linux-64",
		Name:     "foo",
		Version:  "1.0",
		Data:     []byte("payload"),
	}
	if err := Publish(context.Background(), target, []Package{pkg}, Options{IncrementBuildNumber: true}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "foo-1.0-hnew111_3.conda")); err != nil {
		t.Fatalf("expected rewritten filename with build_number 3: %v", err)
	}
}
