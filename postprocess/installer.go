package postprocess

import (
	"os"
	"path/filepath"

	"github.com/archlayer/pkgforge/diag"
)

// StampInstaller overwrites every `*.dist-info/INSTALLER` file under root
// with the literal content "conda\n", per spec.md §4.8 "INSTALLER stamp":
// pip and other tools record themselves as the installer of record, and
// conda-build always corrects that stamp back to itself.
func StampInstaller(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if filepath.Base(path) != "INSTALLER" || filepath.Ext(filepath.Dir(path)) != ".dist-info" {
			return nil
		}
		if err := os.WriteFile(path, []byte("conda\n"), info.Mode()); err != nil {
			return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "stamping INSTALLER at %q", path)
		}
		return nil
	})
}
