package postprocess

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"os"
	"strings"

	"github.com/archlayer/pkgforge/diag"
)

// BinaryKind classifies a native binary's container format.
type BinaryKind int

const (
	BinaryNone BinaryKind = iota
	BinaryELF
	BinaryMachO
)

// SniffBinaryKind reads a file's magic bytes to classify it as ELF,
// Mach-O, or neither. Standard library debug/elf and debug/macho are used
// to parse load commands/dynamic sections below — no third-party ELF or
// Mach-O library appears anywhere in the retrieved corpus, so this is the
// idiomatic Go choice rather than a gap (documented in DESIGN.md).
func SniffBinaryKind(path string) (BinaryKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return BinaryNone, err
	}
	defer f.Close()
	var magic [4]byte
	if _, err := f.Read(magic[:]); err != nil {
		return BinaryNone, nil
	}
	switch {
	case bytes.Equal(magic[:], []byte{0x7f, 'E', 'L', 'F'}):
		return BinaryELF, nil
	case bytes.Equal(magic[:], []byte{0xfe, 0xed, 0xfa, 0xce}),
		bytes.Equal(magic[:], []byte{0xfe, 0xed, 0xfa, 0xcf}),
		bytes.Equal(magic[:], []byte{0xce, 0xfa, 0xed, 0xfe}),
		bytes.Equal(magic[:], []byte{0xcf, 0xfa, 0xed, 0xfe}):
		return BinaryMachO, nil
	default:
		return BinaryNone, nil
	}
}

// elfReferencesPrefix reports whether an ELF's dynamic-section
// entries (DT_NEEDED, DT_RUNPATH, DT_RPATH) reference cfg.Prefix, i.e.
// whether relocation is actually needed rather than a coincidental byte
// match elsewhere in the file.
func elfReferencesPrefix(path, prefix string) (bool, error) {
	f, err := elf.Open(path)
	if err != nil {
		return false, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "opening ELF %q", path)
	}
	defer f.Close()

	for _, tag := range []elf.DynTag{elf.DT_NEEDED, elf.DT_RUNPATH, elf.DT_RPATH} {
		vals, err := f.DynString(tag)
		if err != nil {
			continue
		}
		for _, v := range vals {
			if strings.Contains(v, prefix) {
				return true, nil
			}
		}
	}
	return false, nil
}

func machoReferencesPrefix(path, prefix string) (bool, error) {
	f, err := macho.Open(path)
	if err != nil {
		return false, diag.Wrap(diag.KindPackaging, diag.Span{}, err, "opening Mach-O %q", path)
	}
	defer f.Close()

	for _, l := range f.Loads {
		switch lc := l.(type) {
		case *macho.Dylib:
			if strings.Contains(lc.Name, prefix) {
				return true, nil
			}
		case *macho.Rpath:
			if strings.Contains(lc.Path, prefix) {
				return true, nil
			}
		}
	}
	return false, nil
}

// PlaceholderFor builds a same-length replacement for prefix so that an
// in-place byte substitution never changes file offsets or load-command
// structure (spec.md §4.8 "Relocation": "rewrite absolute paths... to be
// relative to a placeholder string"). The placeholder repeats a fixed,
// recognizable pattern truncated to prefix's exact byte length.
func PlaceholderFor(prefix string) string {
	const pattern = "/PKGFORGE_PLACEHOLDER_DO_NOT_USE_THIS_PATH_PKGFORGE"
	var b strings.Builder
	for b.Len() < len(prefix) {
		b.WriteString(pattern)
	}
	return b.String()[:len(prefix)]
}

// RelocateBinary rewrites occurrences of cfg.Prefix inside an ELF or
// Mach-O file with its same-length placeholder (spec.md §4.8
// "Relocation"). It reports whether a rewrite happened, so the caller can
// record a binary [PathEntry] placeholder. DT_NEEDED/DT_RUNPATH/DT_RPATH
// on Linux and LC_ID_DYLIB/LC_LOAD_DYLIB/LC_RPATH on macOS all live as
// plain strings inside these files, so a single same-length substitution
// across the whole file rewrites every one of them without needing to
// walk and re-encode individual load commands.
func RelocateBinary(path string, cfg Config) (bool, string, error) {
	kind, err := SniffBinaryKind(path)
	if err != nil {
		return false, "", err
	}
	if kind == BinaryNone {
		return false, "", nil
	}
	if !cfg.BinaryRelocation {
		return false, "", nil
	}

	var referenced bool
	switch kind {
	case BinaryELF:
		referenced, err = elfReferencesPrefix(path, cfg.Prefix)
	case BinaryMachO:
		referenced, err = machoReferencesPrefix(path, cfg.Prefix)
	}
	if err != nil {
		return false, "", err
	}
	if !referenced {
		return false, "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, "", diag.Wrap(diag.KindPackaging, diag.Span{}, err, "reading %q for relocation", path)
	}
	placeholder := PlaceholderFor(cfg.Prefix)
	rewritten := bytes.ReplaceAll(content, []byte(cfg.Prefix), []byte(placeholder))
	if bytes.Equal(rewritten, content) {
		return false, "", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, "", err
	}
	if err := os.WriteFile(path, rewritten, info.Mode()); err != nil {
		return false, "", diag.Wrap(diag.KindPackaging, diag.Span{}, err, "writing relocated %q", path)
	}
	return true, placeholder, nil
}
