// Package channel implements the channel indexer/publisher (spec.md
// §4.10, component K): a uniform publish façade over local-filesystem and
// HTTP publication targets, with the object-store adapter documented at its
// interface boundary (see DESIGN.md for the trade-off this implies).
package channel

import (
	"context"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// Package is one built artifact ready for publication.
type Package struct {
	Filename    string
	Subdir      string
	Name        string
	Version     string
	BuildString string
	BuildNumber int64
	Data        []byte
}

// Target names a publication destination. Scheme determines which
// [Backend] handles it: "file" for local filesystem, "s3" for an
// S3-compatible object store, "http"/"https" for a publication server.
type Target struct {
	Scheme string
	Root   string // local path, bucket name, or (for http/https) host and path without the scheme
}

// Options controls build-number resolution and other publish-time
// rewrites spec.md §4.10 names.
type Options struct {
	// IncrementBuildNumber, when true, implements `--build-number +N`:
	// fetch the highest extant build number for (name, version) in the
	// target channel and rewrite each output's build string/build_number
	// before publishing.
	IncrementBuildNumber bool
}

// Backend is the uniform adapter interface every publication target
// implements (spec.md §4.10 "uniform façade publish(target, packages,
// options) -> ()").
type Backend interface {
	// HighestBuildNumber returns the highest build_number already
	// published for (name, version), or -1 if none exists.
	HighestBuildNumber(ctx context.Context, target Target, name, version string) (int64, error)
	// Upload places pkg's bytes at its final channel location.
	Upload(ctx context.Context, target Target, pkg Package) error
	// Reindex regenerates repodata.json for the affected subdir.
	Reindex(ctx context.Context, target Target, subdir string) error
}

// BackendFor resolves target.Scheme to its [Backend]. Local and HTTP
// targets are fully wired; S3 targets are routed to a documented stub that
// returns an error — see DESIGN.md's channel section for why.
func BackendFor(target Target) (Backend, error) {
	switch target.Scheme {
	case "", "file":
		return LocalBackend{}, nil
	case "s3":
		return s3Backend{}, nil
	case "http", "https":
		return httpBackend{}, nil
	default:
		return nil, diag.New(diag.KindPublication, diag.Span{}, "unknown channel target scheme %q", target.Scheme)
	}
}

// Publish implements spec.md §4.10's façade: resolve the backend, apply
// build-number resolution if requested, upload each package, then reindex
// every affected subdir exactly once.
func Publish(ctx context.Context, target Target, packages []Package, opts Options) error {
	backend, err := BackendFor(target)
	if err != nil {
		return err
	}

	if opts.IncrementBuildNumber {
		packages, err = resolveBuildNumbers(ctx, backend, target, packages)
		if err != nil {
			return err
		}
	}

	subdirs := map[string]bool{}
	for _, pkg := range packages {
		if err := backend.Upload(ctx, target, pkg); err != nil {
			return diag.Wrap(diag.KindPublication, diag.Span{}, err, "uploading %q", pkg.Filename)
		}
		subdirs[pkg.Subdir] = true
	}
	for subdir := range subdirs {
		if err := backend.Reindex(ctx, target, subdir); err != nil {
			return diag.Wrap(diag.KindPublication, diag.Span{}, err, "reindexing subdir %q", subdir)
		}
	}
	return nil
}

// resolveBuildNumbers implements the `--build-number +N` rule: for each
// distinct (name, version) in packages, fetch the highest extant build
// number already published and rewrite every matching package's
// build_number and filename to one past it.
func resolveBuildNumbers(ctx context.Context, backend Backend, target Target, packages []Package) ([]Package, error) {
	highest := map[string]int64{}
	out := make([]Package, len(packages))
	copy(out, packages)

	for i, pkg := range out {
		key := pkg.Name + "\x00" + pkg.Version
		n, ok := highest[key]
		if !ok {
			var err error
			n, err = backend.HighestBuildNumber(ctx, target, pkg.Name, pkg.Version)
			if err != nil {
				return nil, err
			}
			highest[key] = n
		}
		next := n + 1
		out[i].BuildNumber = next
		out[i].Filename = rewriteBuildNumberInFilename(pkg.Filename, next)
		if j := strings.LastIndex(pkg.BuildString, "_"); j >= 0 {
			out[i].BuildString = pkg.BuildString[:j+1] + itoa(next)
		}
	}
	return out, nil
}
