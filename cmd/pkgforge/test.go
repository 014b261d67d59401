package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/archlayer/pkgforge/diag"
	"github.com/archlayer/pkgforge/recipe/eval"
	"github.com/archlayer/pkgforge/template"
)

var testCmd = &cobra.Command{
	Use:   "test <pkg>",
	Short: "Run the recipe's declared command tests",
	Args:  cobra.ExactArgs(1),
	RunE:  runTest,
}

// runTest evaluates recipe.yaml in recipeDir and runs each `tests[].script`
// command through /bin/bash in the current directory. The <pkg> archive
// named by args[0] is not opened, extracted or installed; it only appears
// in the summary line. Python-import and package-contents tests are not
// run. It shells out the same way the build driver's [build.RunScript]
// collaborator does, since a command test is itself just a script
// invocation.
func runTest(cmd *cobra.Command, args []string) error {
	recipe, err := loadRecipe(recipeDir)
	if err != nil {
		return err
	}

	result, err := eval.Evaluate(recipe, map[string]any{}, currentPlatform(), template.Lenient)
	if err != nil {
		return err
	}

	ran := 0
	for _, t := range result.Recipe.Tests {
		if t.Script == nil {
			continue
		}
		for _, c := range t.Script.Script {
			shCmd := exec.CommandContext(cmd.Context(), "/bin/bash", "-c", c)
			shCmd.Stdout = os.Stdout
			shCmd.Stderr = os.Stderr
			if err := shCmd.Run(); err != nil {
				return diag.Wrap(diag.KindBuildScript, diag.Span{}, err, "test command failed: %s", c)
			}
		}
		ran++
	}
	fmt.Printf("ran %d test(s) against %s\n", ran, args[0])
	return nil
}
