package channel

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/archlayer/pkgforge/diag"
)

// LocalBackend implements [Backend] by copying into `{root}/{subdir}/`
// and regenerating repodata.json from the directory contents (spec.md
// §4.10 "Local filesystem: copy to {root}/{subdir}/{filename}, then
// reindex"). This is the adapter the repo's tests exercise directly; see
// DESIGN.md for the S3 trade-off.
type LocalBackend struct{}

func (LocalBackend) HighestBuildNumber(ctx context.Context, target Target, name, version string) (int64, error) {
	best := int64(-1)
	err := filepath.WalkDir(target.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		n, matches := parseRepodataEntryFilename(filepath.Base(path), name, version)
		if matches && n > best {
			best = n
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return -1, diag.Wrap(diag.KindPublication, diag.Span{}, err, "scanning channel root %q", target.Root)
	}
	return best, nil
}

func (LocalBackend) Upload(ctx context.Context, target Target, pkg Package) error {
	dir := filepath.Join(target.Root, pkg.Subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(dir, pkg.Filename)
	return os.WriteFile(dest, pkg.Data, 0o644)
}

func (LocalBackend) Reindex(ctx context.Context, target Target, subdir string) error {
	dir := filepath.Join(target.Root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	repodata := repodataDoc{
		Info:              repodataInfo{Subdir: subdir},
		Packages:          map[string]json.RawMessage{},
		PackagesConda:     map[string]json.RawMessage{},
		RepodataVersion:   1,
		RepodataCreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && (strings.HasSuffix(e.Name(), ".conda") || strings.HasSuffix(e.Name(), ".tar.bz2")) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		entry, err := json.Marshal(map[string]any{"size": info.Size()})
		if err != nil {
			continue
		}
		if strings.HasSuffix(name, ".conda") {
			repodata.PackagesConda[name] = entry
		} else {
			repodata.Packages[name] = entry
		}
	}

	b, err := json.MarshalIndent(repodata, "", "  ")
	if err != nil {
		return diag.Wrap(diag.KindPublication, diag.Span{}, err, "marshaling repodata.json")
	}
	return os.WriteFile(filepath.Join(dir, "repodata.json"), b, 0o644)
}

type repodataInfo struct {
	Subdir string `json:"subdir"`
}

type repodataDoc struct {
	Info              repodataInfo               `json:"info"`
	Packages          map[string]json.RawMessage `json:"packages"`
	PackagesConda     map[string]json.RawMessage `json:"packages.conda"`
	RepodataVersion   int                        `json:"repodata_version"`
	RepodataCreatedAt string                     `json:"repodata_created_at"`
}

// parseRepodataEntryFilename extracts the build number from a
// `{name}-{version}-{build_string}.{ext}` filename, matching it against
// name/version; build_string is `{prefix}h{hash}_{build_number}`.
func parseRepodataEntryFilename(filename, name, version string) (int64, bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(filename, ".conda"), ".tar.bz2")
	prefix := name + "-" + version + "-"
	if !strings.HasPrefix(base, prefix) {
		return 0, false
	}
	buildString := strings.TrimPrefix(base, prefix)
	i := strings.LastIndex(buildString, "_")
	if i < 0 {
		return 0, false
	}
	n, err := parseInt64(buildString[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseInt64(s string) (int64, error) {
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, diag.New(diag.KindPublication, diag.Span{}, "not a number: %q", s)
		}
		n = n*10 + int64(c-'0')
	}
	return n, nil
}

// rewriteBuildNumberInFilename replaces the trailing `_{build_number}`
// segment of a build string inside a package filename with next.
func rewriteBuildNumberInFilename(filename string, next int64) string {
	ext := ".conda"
	base := strings.TrimSuffix(filename, ext)
	if base == filename {
		ext = ".tar.bz2"
		base = strings.TrimSuffix(filename, ext)
	}
	i := strings.LastIndex(base, "_")
	if i < 0 {
		return filename
	}
	return base[:i+1] + itoa(next) + ext
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
