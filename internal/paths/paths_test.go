package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCanonical(t *testing.T) {
	t.Setenv("HOME", "/home/alex")
	cases := map[string]string{
		"":                 "",
		"~":                "/home/alex",
		"~/pics/a.png":     "/home/alex/pics/a.png",
		"/abs/path.png":    "/abs/path.png",
		"relative/pic.png": "relative/pic.png",
	}
	for in, want := range cases {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSocketUsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	if got := Socket(); got != "/run/user/1000/fresco.sock" {
		t.Fatalf("Socket() = %q", got)
	}
	t.Setenv("XDG_RUNTIME_DIR", "")
	if got := Socket(); got != "/tmp/fresco.sock" {
		t.Fatalf("fallback Socket() = %q", got)
	}
}

func TestResolveImageAbsolute(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveImage(file)
	if err != nil {
		t.Fatal(err)
	}
	if got != file {
		t.Fatalf("got %q, want %q", got, file)
	}
	if _, err := ResolveImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Fatal("missing absolute path should fail")
	}
	if _, err := ResolveImage(dir); err == nil {
		t.Fatal("directories should be rejected")
	}
}

func TestResolveImageSearchesDirs(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	t.Setenv(SearchDirsEnv, first+":"+second)
	t.Setenv("HOME", t.TempDir())

	if err := os.WriteFile(filepath.Join(second, "wall.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveImage("wall.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(second, "wall.png") {
		t.Fatalf("got %q", got)
	}

	// An entry earlier in the list must win.
	if err := os.WriteFile(filepath.Join(first, "wall.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = ResolveImage("wall.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(first, "wall.png") {
		t.Fatalf("priority order violated, got %q", got)
	}
}

func TestResolveImageTildeInSearchDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(SearchDirsEnv, "~/walls")
	if err := os.MkdirAll(filepath.Join(home, "walls"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(home, "walls", "p.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolveImage("p.png")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "walls", "p.png") {
		t.Fatalf("got %q", got)
	}
}

func TestResolveImageNotFound(t *testing.T) {
	t.Setenv(SearchDirsEnv, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	if _, err := ResolveImage("definitely-missing.png"); err == nil {
		t.Fatal("want error for unresolvable image")
	}
}
