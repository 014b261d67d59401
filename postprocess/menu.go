package postprocess

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// MenuEntry is the subset of a conda-build `Menu/*.json` shortcut
// descriptor this repo validates: enough to catch the structural errors
// spec.md §4.8 "Menu entries" requires rejecting, without adopting the
// full menuinst schema.
type MenuEntry struct {
	MenuName    string            `json:"menu_name"`
	Description string            `json:"description"`
	Platforms   map[string]any    `json:"platforms"`
	Icon        string            `json:"icon,omitempty"`
	Extra       map[string]any    `json:"-"`
}

// ValidateMenus checks every `Menu/*.json` file under root against the
// shortcut schema, returning a diag.KindPackaging error naming the first
// invalid file (spec.md §4.8: "any Menu/*.json file is validated against
// a declared schema; a failure here is a packaging error, not a warning").
func ValidateMenus(root string) error {
	menuDir := filepath.Join(root, "Menu")
	entries, err := os.ReadDir(menuDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading Menu directory")
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(menuDir, e.Name())
		if err := validateMenuFile(path); err != nil {
			return err
		}
	}
	return nil
}

func validateMenuFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading menu file %q", path)
	}
	var entry MenuEntry
	if err := json.Unmarshal(content, &entry); err != nil {
		return diag.Wrap(diag.KindPackaging, diag.Span{}, err, "menu file %q is not valid JSON", path)
	}
	if entry.MenuName == "" {
		return diag.New(diag.KindPackaging, diag.Span{}, "menu file %q missing required field menu_name", path)
	}
	if len(entry.Platforms) == 0 {
		return diag.New(diag.KindPackaging, diag.Span{}, "menu file %q declares no platforms", path)
	}
	return nil
}
