package patch

import (
	"strings"
	"testing"
)

const sampleDiff = `--- a/greeting.txt
+++ b/greeting.txt
@@ -1,3 +1,3 @@
 hello
-world
+there
 friend
`

func TestParseAndApplySingleHunk(t *testing.T) {
	diffs, err := ParseMultiple(sampleDiff, Check)
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("got %d diffs, want 1", len(diffs))
	}
	d := diffs[0]
	if d.OriginalPath != "greeting.txt" || d.ModifiedPath != "greeting.txt" {
		t.Fatalf("paths = %q / %q", d.OriginalPath, d.ModifiedPath)
	}
	if len(d.Hunks) != 1 {
		t.Fatalf("got %d hunks, want 1", len(d.Hunks))
	}

	original := []byte("hello\nworld\nfriend\n")
	result, err := Apply(d, original, FuzzyConfig{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	want := "hello\nthere\nfriend\n"
	if string(result) != want {
		t.Fatalf("Apply result = %q, want %q", result, want)
	}
}

func TestApplyFuzzySlidesContext(t *testing.T) {
	diffs, err := ParseMultiple(sampleDiff, Check)
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	d := diffs[0]

	// Two extra lines inserted before the hunk's declared position shift
	// the real match down by two; MaxFuzz must be large enough to find it.
	original := []byte("prelude one\nprelude two\nhello\nworld\nfriend\n")
	result, err := Apply(d, original, FuzzyConfig{MaxFuzz: 3})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !strings.Contains(string(result), "hello\nthere\nfriend\n") {
		t.Fatalf("Apply result = %q", result)
	}
}

func TestApplyNoMatchFails(t *testing.T) {
	diffs, err := ParseMultiple(sampleDiff, Check)
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	d := diffs[0]

	original := []byte("completely different content\n")
	if _, err := Apply(d, original, FuzzyConfig{}); err == nil {
		t.Fatal("expected Apply to fail when context does not match")
	}
}

func TestParseMultipleFileDiff(t *testing.T) {
	multi := sampleDiff + "\n" + `--- a/other.txt
+++ b/other.txt
@@ -1,1 +1,1 @@
-old
+new
`
	diffs, err := ParseMultiple(multi, Check)
	if err != nil {
		t.Fatalf("ParseMultiple: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("got %d diffs, want 2", len(diffs))
	}
	if diffs[1].OriginalPath != "other.txt" {
		t.Fatalf("diffs[1].OriginalPath = %q", diffs[1].OriginalPath)
	}
}
