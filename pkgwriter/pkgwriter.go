// Package pkgwriter assembles the final archive root for a built package
// (spec.md §4.9, component J): info/ metadata files, the collected
// payload, and handoff to the archive codec.
package pkgwriter

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/archlayer/pkgforge/archive"
	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/postprocess"
	"github.com/archlayer/pkgforge/recipe/stage1"
	"github.com/archlayer/pkgforge/variant"
)

// Options controls what the writer includes and how it names/compresses
// the final artifact.
type Options struct {
	Format         archive.Format
	Subdir         string // e.g. "linux-64", "noarch"
	Timestamp      time.Time
	IncludeRecipe  bool
	RecipeRawYAML  []byte
	RecipeRendered []byte
	VariantConfig  []byte
	Channels       []string
}

// Result is what a successful Write reports back to the build driver.
type Result struct {
	Filename string
	Subdir   string
}

// Write lays out info/ plus the staged payload under root and streams the
// result through the configured [archive.Format] to dest, returning the
// archive filename spec.md §4.9 defines: `{name}-{version}-{build_string}.{ext}`.
func Write(dest *os.File, root string, rv variant.RenderedVariant, manifest []postprocess.PathEntry, opts Options) (Result, error) {
	infoFiles, err := buildInfoFiles(rv, manifest, opts)
	if err != nil {
		return Result{}, err
	}

	entries, err := collectEntries(root, infoFiles)
	if err != nil {
		return Result{}, err
	}
	archive.SortEntries(entries)

	w := archive.NewWriter(opts.Format)
	if err := w.Write(dest, entries, opts.Timestamp); err != nil {
		return Result{}, err
	}

	filename := rv.Recipe.Package.Name + "-" + rv.Recipe.Package.Version + "-" + rv.BuildString + opts.Format.Ext()
	return Result{Filename: filename, Subdir: opts.Subdir}, nil
}

// buildInfoFiles renders every `info/*.json` member in memory, keyed by
// its archive-relative path (spec.md §4.9's `info/` layout table).
func buildInfoFiles(rv variant.RenderedVariant, manifest []postprocess.PathEntry, opts Options) (map[string][]byte, error) {
	files := map[string][]byte{}

	index, err := marshalIndent(indexJSON(rv, opts))
	if err != nil {
		return nil, err
	}
	files["info/index.json"] = index

	paths, err := marshalIndent(pathsJSON(manifest))
	if err != nil {
		return nil, err
	}
	files["info/paths.json"] = paths

	about, err := marshalIndent(aboutJSON(rv.Recipe.About, opts))
	if err != nil {
		return nil, err
	}
	files["info/about.json"] = about

	if re := runExportsJSON(rv.Recipe.Requirements.RunExports); re != nil {
		b, err := marshalIndent(re)
		if err != nil {
			return nil, err
		}
		files["info/run_exports.json"] = b
	}

	if rv.Recipe.Build.NoArch == stage1.NoArchPython {
		b, err := marshalIndent(linkJSON(rv.Recipe.Build.Python))
		if err != nil {
			return nil, err
		}
		files["info/link.json"] = b
	}

	hashInput, err := marshalIndent(rv.ActualVariant)
	if err != nil {
		return nil, err
	}
	files["info/hash_input.json"] = hashInput

	if opts.IncludeRecipe {
		if len(opts.RecipeRawYAML) > 0 {
			files["info/recipe/recipe.yaml"] = opts.RecipeRawYAML
		}
		if len(opts.RecipeRendered) > 0 {
			files["info/recipe/rendered_recipe.yaml"] = opts.RecipeRendered
		}
		if len(opts.VariantConfig) > 0 {
			files["info/recipe/variant_config.yaml"] = opts.VariantConfig
		}
	}

	return files, nil
}

func marshalIndent(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "marshaling info json")
	}
	return append(b, '\n'), nil
}

type indexDoc struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Build         string   `json:"build"`
	BuildNumber   int64    `json:"build_number"`
	Depends       []string `json:"depends"`
	Constrains    []string `json:"constrains"`
	Subdir        string   `json:"subdir"`
	Platform      string   `json:"platform,omitempty"`
	Arch          string   `json:"arch,omitempty"`
	NoArch        string   `json:"noarch,omitempty"`
	License       string   `json:"license,omitempty"`
	LicenseFamily string   `json:"license_family,omitempty"`
	Timestamp     int64    `json:"timestamp"`
	TrackFeatures []string `json:"track_features,omitempty"`
}

func indexJSON(rv variant.RenderedVariant, opts Options) indexDoc {
	doc := indexDoc{
		Name:        rv.Recipe.Package.Name,
		Version:     rv.Recipe.Package.Version,
		Build:       rv.BuildString,
		BuildNumber: rv.Recipe.Build.Number,
		Depends:     matchSpecStrings(rv.Recipe.Requirements.Run),
		Constrains:  matchSpecStrings(rv.Recipe.Requirements.RunConstraints),
		Subdir:      opts.Subdir,
		Timestamp:   opts.Timestamp.UnixMilli(),
		License:     rv.Recipe.About.License,
	}
	if doc.Depends == nil {
		doc.Depends = []string{}
	}
	if doc.Constrains == nil {
		doc.Constrains = []string{}
	}
	switch rv.Recipe.Build.NoArch {
	case stage1.NoArchGeneric:
		doc.NoArch = "generic"
	case stage1.NoArchPython:
		doc.NoArch = "python"
	}
	return doc
}

func matchSpecStrings(deps []stage1.Dependency) []string {
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		out = append(out, d.Raw)
	}
	return out
}

type pathEntryDoc struct {
	Path              string `json:"_path"`
	PathType          string `json:"path_type"`
	SHA256            string `json:"sha256,omitempty"`
	SizeInBytes       int64  `json:"size_in_bytes,omitempty"`
	PrefixPlaceholder string `json:"prefix_placeholder,omitempty"`
	FileMode          string `json:"file_mode,omitempty"`
}

type pathsDoc struct {
	PathsVersion int            `json:"paths_version"`
	Paths        []pathEntryDoc `json:"paths"`
}

func pathsJSON(manifest []postprocess.PathEntry) pathsDoc {
	doc := pathsDoc{PathsVersion: 1, Paths: make([]pathEntryDoc, 0, len(manifest))}
	for _, e := range manifest {
		if e.Type == postprocess.TypeDirectory {
			continue
		}
		pe := pathEntryDoc{
			Path:        e.Path,
			PathType:    pathTypeString(e.Type),
			SHA256:      e.SHA256,
			SizeInBytes: e.SizeBytes,
		}
		switch e.PlaceholderMode {
		case postprocess.PlaceholderText:
			pe.PrefixPlaceholder, pe.FileMode = e.Placeholder, "text"
		case postprocess.PlaceholderBinary:
			pe.PrefixPlaceholder, pe.FileMode = e.Placeholder, "binary"
		}
		doc.Paths = append(doc.Paths, pe)
	}
	return doc
}

func pathTypeString(t postprocess.FileType) string {
	if t == postprocess.TypeSoftLink {
		return "softlink"
	}
	return "hardlink"
}

type aboutDoc struct {
	Home        string   `json:"home,omitempty"`
	License     string   `json:"license,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	DocURL      string   `json:"doc_url,omitempty"`
	DevURL      string   `json:"dev_url,omitempty"`
	SourceURL   string   `json:"source_url,omitempty"`
	Channels    []string `json:"channels,omitempty"`
}

func aboutJSON(a stage1.About, opts Options) aboutDoc {
	return aboutDoc{
		Home:        a.Homepage,
		License:     a.License,
		Summary:     a.Summary,
		Description: a.Description,
		DocURL:      a.DocURL,
		DevURL:      a.DevURL,
		Channels:    opts.Channels,
	}
}

type runExportsDoc struct {
	Strong            []string `json:"strong,omitempty"`
	Weak              []string `json:"weak,omitempty"`
	Noarch            []string `json:"noarch,omitempty"`
	StrongConstraints []string `json:"strong_constrains,omitempty"`
	WeakConstraints   []string `json:"weak_constrains,omitempty"`
}

func runExportsJSON(re stage1.RunExports) *runExportsDoc {
	if len(re.Strong) == 0 && len(re.Weak) == 0 && len(re.Noarch) == 0 &&
		len(re.StrongConstraints) == 0 && len(re.WeakConstraints) == 0 {
		return nil
	}
	return &runExportsDoc{
		Strong:            matchSpecStrings(re.Strong),
		Weak:              matchSpecStrings(re.Weak),
		Noarch:            matchSpecStrings(re.Noarch),
		StrongConstraints: matchSpecStrings(re.StrongConstraints),
		WeakConstraints:   matchSpecStrings(re.WeakConstraints),
	}
}

type linkDoc struct {
	NoArch noarchLinkDoc `json:"noarch"`
}

type noarchLinkDoc struct {
	Type        string   `json:"type"`
	EntryPoints []string `json:"entry_points,omitempty"`
}

func linkJSON(py stage1.PythonBuild) linkDoc {
	return linkDoc{NoArch: noarchLinkDoc{Type: "python", EntryPoints: py.EntryPoints}}
}

// collectEntries walks the staged payload under root plus the in-memory
// info files, producing [archive.Entry] values the codec writer consumes.
func collectEntries(root string, infoFiles map[string][]byte) ([]archive.Entry, error) {
	var entries []archive.Entry
	for path, content := range infoFiles {
		content := content
		entries = append(entries, archive.Entry{
			Path: path,
			Mode: 0o644,
			Size: int64(len(content)),
			Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
		})
	}

	walkErr := walkPayload(root, func(path, rel string, info os.FileInfo) error {
		e := archive.Entry{Path: rel, Mode: uint32(info.Mode().Perm())}
		switch {
		case info.IsDir():
			e.IsDir = true
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading symlink %q", rel)
			}
			e.IsSymlink, e.LinkTarget = true, target
		default:
			e.Size = info.Size()
			p := path
			e.Open = func() (io.ReadCloser, error) { return os.Open(p) }
		}
		entries = append(entries, e)
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return entries, nil
}

func walkPayload(root string, fn func(path, rel string, info os.FileInfo) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || path == root {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		return fn(path, filepath.ToSlash(rel), info)
	})
}
