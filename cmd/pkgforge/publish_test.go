package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseChannelTarget(t *testing.T) {
	cases := []struct {
		ref, scheme, root string
	}{
		{"/srv/channel", "file", "/srv/channel"},
		{"s3://my-bucket/channel", "s3", "my-bucket/channel"},
		{"https://pkgs.example.com/channel", "https", "pkgs.example.com/channel"},
	}
	for _, c := range cases {
		got, err := parseChannelTarget(c.ref)
		if err != nil {
			t.Fatalf("parseChannelTarget(%q): %v", c.ref, err)
		}
		if got.Scheme != c.scheme || got.Root != c.root {
			t.Errorf("parseChannelTarget(%q) = %+v, want {%s %s}", c.ref, got, c.scheme, c.root)
		}
	}
}

func TestLoadPublishPackageParsesFilenameConvention(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "linux-64")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "my-tool-1.2.3-h_abc123_0.conda")
	if err := os.WriteFile(path, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	pkg, err := loadPublishPackage(path)
	if err != nil {
		t.Fatalf("loadPublishPackage: %v", err)
	}
	if pkg.Name != "my-tool" {
		t.Errorf("Name = %q, want %q", pkg.Name, "my-tool")
	}
	if pkg.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", pkg.Version, "1.2.3")
	}
	if pkg.BuildString != "h_abc123_0" {
		t.Errorf("BuildString = %q, want %q", pkg.BuildString, "h_abc123_0")
	}
	if pkg.Subdir != "linux-64" {
		t.Errorf("Subdir = %q, want %q", pkg.Subdir, "linux-64")
	}
	if string(pkg.Data) != "payload" {
		t.Errorf("Data = %q", pkg.Data)
	}
}

func TestLoadPublishPackageRejectsMalformedFilename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readme.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadPublishPackage(path); err == nil {
		t.Fatal("expected error for malformed filename")
	}
}
