package patch

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/patternmatcher"

	"github.com/archlayer/pkgforge/diag"
)

// alwaysIgnored are filenames patch synthesis never diffs (spec.md §4.6
// "Patch synthesis" step 5).
var alwaysIgnored = map[string]bool{
	".source_info.json": true,
	"conda_build.sh":     true,
	"conda_build.bat":    true,
}

// SynthesizeFile builds a unified [Diff] between original and modified
// content at path, implementing spec.md §4.6 steps 3-4 for one file.
// Either side may be nil to represent a deletion/creation.
func SynthesizeFile(path string, original, modified []byte) (*Diff, error) {
	switch {
	case original == nil && modified == nil:
		return nil, nil
	case original == nil:
		if looksBinary(modified) {
			return binaryMarkerDiff(path, StatusCreated), nil
		}
		return textDiff(path, StatusCreated, nil, modified), nil
	case modified == nil:
		if looksBinary(original) {
			return binaryMarkerDiff(path, StatusDeleted), nil
		}
		return textDiff(path, StatusDeleted, original, nil), nil
	case bytes.Equal(original, modified):
		return nil, nil
	default:
		if looksBinary(original) || looksBinary(modified) {
			return nil, diag.New(diag.KindPatch, diag.Span{},
				"cannot synthesize a unified diff for binary file %q", path)
		}
		return textDiff(path, StatusModified, original, modified), nil
	}
}

// looksBinary implements spec.md §4.6 step 4's binary-detection rule: a
// null byte within the first 8 KiB.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > 8192 {
		n = 8192
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

func binaryMarkerDiff(path string, status FileStatus) *Diff {
	d := &Diff{Status: status}
	switch status {
	case StatusCreated:
		d.ModifiedPath = path
	case StatusDeleted:
		d.OriginalPath = path
	}
	return d
}

// textDiff computes a line-level diff via longest-common-subsequence and
// packs the result into a single hunk spanning the whole file — adequate
// for recipe-sized patch targets (spec.md does not require minimal-hunk
// output, only a correct round trip).
func textDiff(path string, status FileStatus, original, modified []byte) *Diff {
	oldLines := splitLines(string(original))
	newLines := splitLines(string(modified))

	ops := lcsDiff(oldLines, newLines)
	if len(ops) == 0 {
		return nil
	}

	d := &Diff{Status: status}
	switch status {
	case StatusCreated:
		d.ModifiedPath = path
	case StatusDeleted:
		d.OriginalPath = path
	default:
		d.OriginalPath = path
		d.ModifiedPath = path
	}
	// An empty side starts at line 0, as in `@@ -0,0 +1,N @@`.
	oldStart, newStart := 1, 1
	if len(oldLines) == 0 {
		oldStart = 0
	}
	if len(newLines) == 0 {
		newStart = 0
	}
	d.Hunks = []Hunk{{
		OldRange: Range{Start: oldStart, Len: len(oldLines)},
		NewRange: Range{Start: newStart, Len: len(newLines)},
		Lines:    ops,
	}}
	return d
}

// lcsDiff computes a minimal edit script between a and b via the classic
// O(n*m) longest-common-subsequence table, expressed as hunk [Line]s.
func lcsDiff(a, b []string) []Line {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if stripEOL(a[i]) == stripEOL(b[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out []Line
	i, j := 0, 0
	for i < n && j < m {
		if stripEOL(a[i]) == stripEOL(b[j]) {
			out = append(out, toLine(LineContext, a[i]))
			i++
			j++
		} else if lcs[i+1][j] >= lcs[i][j+1] {
			out = append(out, toLine(LineDelete, a[i]))
			i++
		} else {
			out = append(out, toLine(LineInsert, b[j]))
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, toLine(LineDelete, a[i]))
	}
	for ; j < m; j++ {
		out = append(out, toLine(LineInsert, b[j]))
	}
	return out
}

func toLine(kind LineKind, raw string) Line {
	return Line{Kind: kind, Text: stripEOL(raw), NoNewlineAtEOF: !strings.HasSuffix(raw, "\n")}
}

// SynthesizeTree implements spec.md §4.6 steps 1-5 across an entire work
// tree: for every file under workDir, reconstruct the expected
// post-patch bytes by re-applying only the existing patches that
// reference it against origDir, then diff current-vs-expected. Files
// matching excludeGlobs or alwaysIgnored are skipped.
func SynthesizeTree(workDir, origDir string, existing []Diff, excludeGlobs []string) ([]Diff, error) {
	byFile := map[string][]Diff{}
	for _, d := range existing {
		key := d.ModifiedPath
		if key == "" {
			key = d.OriginalPath
		}
		byFile[key] = append(byFile[key], d)
	}

	var excluder *patternmatcher.PatternMatcher
	if len(excludeGlobs) > 0 {
		m, err := patternmatcher.New(excludeGlobs)
		if err != nil {
			return nil, diag.Wrap(diag.KindPatch, diag.Span{}, err, "compiling create-patch exclude globs")
		}
		excluder = m
	}

	paths := map[string]bool{}
	if err := collectPaths(workDir, paths); err != nil {
		return nil, err
	}
	if err := collectPaths(origDir, paths); err != nil {
		return nil, err
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	var out []Diff
	for _, rel := range sorted {
		if alwaysIgnored[filepath.Base(rel)] {
			continue
		}
		if excluder != nil {
			skip, err := excluder.MatchesUsingParentResults(filepath.ToSlash(rel), patternmatcher.MatchInfo{})
			if err == nil && skip {
				continue
			}
		}

		expected, err := reconstructExpected(origDir, rel, byFile[filepath.ToSlash(rel)])
		if err != nil {
			return nil, err
		}
		current := readOrNil(filepath.Join(workDir, rel))

		d, err := SynthesizeFile(filepath.ToSlash(rel), expected, current)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// reconstructExpected rebuilds the "post-existing-patches" content of rel
// by applying, in order, every already-recorded patch that targets it
// (spec.md §4.6 step 2).
func reconstructExpected(origDir, rel string, patches []Diff) ([]byte, error) {
	content := readOrNil(filepath.Join(origDir, rel))
	for _, d := range patches {
		if content == nil && d.Status != StatusCreated {
			continue // a prior patch already deleted or never created this file
		}
		applied, err := Apply(d, content, FuzzyConfig{MaxFuzz: 2})
		if err != nil {
			return nil, err
		}
		content = applied
	}
	return content, nil
}

func collectPaths(root string, into map[string]bool) error {
	if _, err := os.Stat(root); err != nil {
		return nil
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		into[filepath.ToSlash(rel)] = true
		return nil
	})
}

func readOrNil(path string) []byte {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return b
}
