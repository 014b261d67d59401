package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/stage0"
	"github.com/archlayer/pkgforge/variant"
)

var genSchemaOutput string

var genSchemaCmd = &cobra.Command{
	Use:   "gen-schema",
	Short: "Emit the recipe.yaml and variant-config JSON Schemas",
	RunE:  runGenSchema,
}

func init() {
	genSchemaCmd.Flags().StringVar(&genSchemaOutput, "output", "", "directory to write recipe.schema.json and variants.schema.json into (stdout if empty)")
}

// runGenSchema reflects the Stage-0 recipe and variant-config Go types
// into JSON Schema, the same invopop/jsonschema reflector the teacher's
// own schema generator used, minus its buildkit-spec-specific
// post-processing (the x- pattern-property allowance and the
// integer-or-string env-map widening) which doesn't apply to this
// recipe shape.
func runGenSchema(cmd *cobra.Command, args []string) error {
	var r jsonschema.Reflector
	_ = r.AddGoComments("github.com/archlayer/pkgforge", "./")

	recipeSchema := r.Reflect(&stage0.Recipe{})
	variantSchema := r.Reflect(&variant.Config{})

	if genSchemaOutput == "" {
		dt, err := json.MarshalIndent(recipeSchema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(dt))
		dt, err = json.MarshalIndent(variantSchema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(dt))
		return nil
	}

	if err := os.MkdirAll(genSchemaOutput, 0o755); err != nil {
		return err
	}
	if err := writeSchema(filepath.Join(genSchemaOutput, "recipe.schema.json"), recipeSchema); err != nil {
		return err
	}
	return writeSchema(filepath.Join(genSchemaOutput, "variants.schema.json"), variantSchema)
}

func writeSchema(path string, schema *jsonschema.Schema) error {
	dt, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, dt, 0o644); err != nil {
		return diag.Wrap(diag.KindSchema, diag.Span{}, err, "writing %q", path)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
