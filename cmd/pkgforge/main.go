// Command pkgforge builds conda-ecosystem packages from declarative YAML
// recipes: recipe evaluation, variant expansion, source acquisition and
// patching, package assembly, and channel publication.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/archlayer/pkgforge/diag"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		var derr *diag.Error
		if errors.As(err, &derr) {
			code = derr.Kind.ExitCode()
			fmt.Fprintln(os.Stderr, derr.Render())
		} else {
			logrus.WithError(err).Error("pkgforge failed")
		}
		os.Exit(code)
	}
}
