package promptfiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFragment(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoader_LoadOrdersIdentityFragmentsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "extra.md", "Extra Content")
	writeFragment(t, dir, "user.md", "User Content")
	writeFragment(t, dir, "capabilities.md", "Capabilities Content")
	writeFragment(t, dir, "soul.md", "Soul Content")
	writeFragment(t, dir, "identity.md", "Identity Content")

	loader := NewLoader(dir)
	prompt, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, part := range []string{"Identity Content", "Soul Content", "Capabilities Content", "User Content", "Extra Content"} {
		if !strings.Contains(prompt, part) {
			t.Errorf("expected prompt to contain %q", part)
		}
	}
	if strings.Index(prompt, "Identity Content") >= strings.Index(prompt, "Soul Content") {
		t.Error("expected identity before soul")
	}
	if strings.Index(prompt, "Soul Content") >= strings.Index(prompt, "Capabilities Content") {
		t.Error("expected soul before capabilities")
	}
	if strings.Index(prompt, "Capabilities Content") >= strings.Index(prompt, "User Content") {
		t.Error("expected capabilities before user")
	}
}

func TestLoader_LoadIgnoresNonMarkdownFiles(t *testing.T) {
	dir := t.TempDir()
	writeFragment(t, dir, "identity.md", "Identity Content")
	writeFragment(t, dir, "notes.txt", "should be ignored")

	loader := NewLoader(dir)
	prompt, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if strings.Contains(prompt, "should be ignored") {
		t.Error("expected non-markdown files to be skipped")
	}
}

func TestLoader_LoadEmptyDirectoryErrors(t *testing.T) {
	loader := NewLoader(t.TempDir())
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected an error when no fragments are present")
	}
}
