package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/recipe/yamlnode"
	"github.com/archlayer/pkgforge/variant"
)

// loadRecipe reads and parses `recipe.yaml` out of dir into a Stage-0
// recipe, the common first step of every recipe-consuming subcommand.
func loadRecipe(dir string) (*stage0.Recipe, error) {
	path := filepath.Join(dir, "recipe.yaml")
	dt, err := os.ReadFile(path)
	if err != nil {
		return nil, diag.Wrap(diag.KindSchema, diag.Span{}, err, "reading %q", path)
	}
	node, err := yamlnode.Load(path, dt)
	if err != nil {
		return nil, err
	}
	if err := yamlnode.Validate(node); err != nil {
		return nil, err
	}
	return stage0.Decode(node)
}

// loadVariantConfig loads a variant configuration file if path is
// non-empty, otherwise returns an empty single-point configuration.
func loadVariantConfig(path string) (variant.Config, error) {
	if path == "" {
		return variant.Config{}, nil
	}
	dt, err := os.ReadFile(path)
	if err != nil {
		return variant.Config{}, diag.Wrap(diag.KindVariant, diag.Span{}, err, "reading variant config %q", path)
	}
	return variant.LoadConfig(dt)
}

func logExpansion(name string, variants int) {
	logrus.WithFields(logrus.Fields{
		"package":  name,
		"variants": variants,
	}).Info("expanded recipe")
}
