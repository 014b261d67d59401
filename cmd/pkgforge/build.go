package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/archive"
	pkgbuild "github.com/archlayer/pkgforge/build"
	"github.com/archlayer/pkgforge/solver"
	"github.com/archlayer/pkgforge/source"
	"github.com/archlayer/pkgforge/variant"
)

var buildFormat string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Expand variants and build each",
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildFormat, "format", "conda", "archive format: conda or tar.bz2")
}

func runBuild(cmd *cobra.Command, args []string) error {
	recipe, err := loadRecipe(recipeDir)
	if err != nil {
		return err
	}
	varCfg, err := loadVariantConfig(variantConfig)
	if err != nil {
		return err
	}

	platform := currentPlatform()
	variants, err := variant.Expand(recipe, varCfg, platform)
	if err != nil {
		return err
	}

	format := archive.FormatCondaV2
	if buildFormat == "tar.bz2" {
		format = archive.FormatTarBZ2
	}

	cache, err := source.NewCache(outputDir + "/src_cache")
	if err != nil {
		return err
	}

	name := ""
	if len(variants) > 0 {
		name = variants[0].Recipe.Package.Name
	}
	logExpansion(name, len(variants))

	for _, rv := range variants {
		driver := pkgbuild.NewDriver(pkgbuild.Config{
			WorkRoot:        outputDir,
			RecipeDir:       recipeDir,
			BuildPlatform:   platform,
			Cache:           cache,
			Solver:          solver.Default(),
			PackagingFormat: format,
			ChannelIndex:    solver.ChannelIndex{},
			PinRunAsBuild:   varCfg.PinRunAsBuild,
		})
		summary, err := driver.Run(cmd.Context(), rv)
		if err != nil {
			return err
		}
		fmt.Printf("built %s-%s-%s -> %s\n", summary.Name, summary.Version, summary.BuildString, summary.ArtifactPath)
	}
	return nil
}
