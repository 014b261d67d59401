package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/channel"
	"github.com/archlayer/pkgforge/diag"
)

var (
	publishForce       bool
	publishBuildNumber string
)

var publishCmd = &cobra.Command{
	Use:   "publish <channel> <pkg...>",
	Short: "Upload and reindex",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().BoolVar(&publishForce, "force", false, "accepted but has no effect: an existing channel entry is always overwritten")
	publishCmd.Flags().StringVar(&publishBuildNumber, "build-number", "", "explicit build number, or +N to bump past the highest published one")
}

func runPublish(cmd *cobra.Command, args []string) error {
	target, err := parseChannelTarget(args[0])
	if err != nil {
		return err
	}

	packages := make([]channel.Package, 0, len(args)-1)
	for _, path := range args[1:] {
		pkg, err := loadPublishPackage(path)
		if err != nil {
			return err
		}
		packages = append(packages, pkg)
	}

	opts := channel.Options{}
	if strings.HasPrefix(publishBuildNumber, "+") {
		opts.IncrementBuildNumber = true
	} else if publishBuildNumber != "" {
		n, err := strconv.ParseInt(publishBuildNumber, 10, 64)
		if err != nil {
			return diag.Wrap(diag.KindPublication, diag.Span{}, err, "parsing --build-number %q", publishBuildNumber)
		}
		for i := range packages {
			packages[i].BuildNumber = n
		}
	}

	if err := channel.Publish(cmd.Context(), target, packages, opts); err != nil {
		return err
	}
	fmt.Printf("published %d package(s) to %s\n", len(packages), args[0])
	return nil
}

// parseChannelTarget reads a `scheme://root` or bare local-path channel
// reference off the CLI into a [channel.Target].
func parseChannelTarget(ref string) (channel.Target, error) {
	if idx := strings.Index(ref, "://"); idx >= 0 {
		return channel.Target{Scheme: ref[:idx], Root: ref[idx+3:]}, nil
	}
	return channel.Target{Scheme: "file", Root: ref}, nil
}

// loadPublishPackage reads an on-disk archive and derives its channel
// metadata from the conda filename convention `{name}-{version}-{build_string}.{ext}`.
func loadPublishPackage(path string) (channel.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return channel.Package{}, diag.Wrap(diag.KindPublication, diag.Span{}, err, "reading %q", path)
	}

	base := filepath.Base(path)
	ext := ".tar.bz2"
	stem := strings.TrimSuffix(base, ".tar.bz2")
	if stem == base {
		ext = filepath.Ext(base)
		stem = strings.TrimSuffix(base, ext)
	}

	parts := strings.Split(stem, "-")
	if len(parts) < 3 {
		return channel.Package{}, diag.New(diag.KindPublication, diag.Span{}, "%q does not match name-version-build_string%s", base, ext)
	}
	buildString := parts[len(parts)-1]
	version := parts[len(parts)-2]
	name := strings.Join(parts[:len(parts)-2], "-")

	subdir := filepath.Base(filepath.Dir(path))
	if subdir == "." || subdir == "/" {
		subdir = currentPlatform()
	}

	return channel.Package{
		Filename:    base,
		Subdir:      subdir,
		Name:        name,
		Version:     version,
		BuildString: buildString,
		Data:        data,
	}, nil
}
