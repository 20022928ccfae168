package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/palmcam/internal/capture"
)

const sampleProfiles = `
[[profiles]]
name = "hd-environment"
facing = "environment"
frame_rate = 30
resolution = { width = 1280, height = 720 }

[[profiles]]
name = "user"
facing = "user"

[[profiles]]
name = "any"
`

func TestParseProfiles(t *testing.T) {
	profiles, err := ParseProfiles([]byte(sampleProfiles))
	if err != nil {
		t.Fatalf("ParseProfiles failed: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("Expected 3 profiles, got %d", len(profiles))
	}
	hd := profiles[0]
	if hd.Resolution == nil || hd.Resolution.Width != 1280 || hd.Resolution.Height != 720 {
		t.Errorf("Expected 1280x720, got %v", hd.Resolution)
	}
	if hd.Facing != capture.FacingEnvironment {
		t.Errorf("Expected facing environment, got %q", hd.Facing)
	}
	if hd.FrameRate != 30 {
		t.Errorf("Expected frame rate 30, got %v", hd.FrameRate)
	}
	if profiles[2].Resolution != nil || profiles[2].Facing != capture.FacingAny {
		t.Errorf("Expected unconstrained last profile, got %+v", profiles[2])
	}
}

func TestParseProfilesRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty"},
		{"unknown key", "[[profiles]]\nname = \"x\"\nzoom = 2\n", "strict"},
		{"bad facing", "[[profiles]]\nfacing = \"left\"\n", "facing"},
		{"bad resolution", "[[profiles]]\nresolution = { width = 0, height = 480 }\n", "resolution"},
		{"syntax", "[[profiles", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfiles([]byte(tt.input))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestWriteProfilesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.toml")
	ladder := capture.DefaultLadder()
	if err := WriteProfiles(path, ladder); err != nil {
		t.Fatalf("WriteProfiles failed: %v", err)
	}
	loaded, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if len(loaded) != len(ladder) {
		t.Fatalf("Expected %d profiles, got %d", len(ladder), len(loaded))
	}
	for i := range ladder {
		if loaded[i].String() != ladder[i].String() {
			t.Errorf("Profile %d: expected %s, got %s", i, ladder[i], loaded[i])
		}
	}
}

func TestLoadProfilesMissing(t *testing.T) {
	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}
