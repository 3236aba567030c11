package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Southclaws/fault/ftag"
)

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()
	if p.Name != "plasma" {
		t.Errorf("name = %q", p.Name)
	}
	if len(p.Colors) != 11 {
		t.Fatalf("colors = %d", len(p.Colors))
	}
	if p.Lookup(0) != (RGB{13, 8, 135}) || p.Lookup(1) != (RGB{240, 249, 33}) {
		t.Errorf("endpoints = %v %v", p.Lookup(0), p.Lookup(1))
	}
}

func TestParseGPLSkipsJunk(t *testing.T) {
	src := "GIMP Palette\nName: test\nColumns: 2\n# comment\n0 0 0 black\n\nbad line\n300 0 0\n255 255 255\tWhite\n"
	p, err := ParseGPL(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Colors) != 2 {
		t.Fatalf("colors = %v", p.Colors)
	}
	if mid := p.Lookup(0.5); mid != (RGB{127, 127, 127}) {
		t.Errorf("midpoint = %v", mid)
	}
	if p.Index(-1) != p.Colors[0] || p.Index(9) != p.Colors[1] {
		t.Error("Index should clamp")
	}
}

func TestParseGPLEmpty(t *testing.T) {
	_, err := ParseGPL(strings.NewReader("GIMP Palette\nName: none\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	if ftag.Get(err) != ftag.InvalidArgument {
		t.Errorf("tag = %v", ftag.Get(err))
	}
}

func TestLoad(t *testing.T) {
	th, err := Load("")
	if err != nil || th.Palette.Name != "plasma" {
		t.Fatalf("Load(\"\") = %v, %v", th, err)
	}

	path := filepath.Join(t.TempDir(), "mono.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\n0 0 0\n255 255 255\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	th, err = Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(th.Success()); got != "#ffffff" {
		t.Errorf("success = %s", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.gpl")); ftag.Get(err) != ftag.NotFound {
		t.Errorf("missing file tag = %v", ftag.Get(err))
	}
}
