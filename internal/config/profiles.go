package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/palmcam/internal/capture"
)

// profilesFile is the on-disk shape of a constraint ladder:
//
//	[[profiles]]
//	name = "hd-environment"
//	facing = "environment"
//	frame_rate = 30
//	resolution = { width = 1280, height = 720 }
type profilesFile struct {
	Profiles []capture.ConstraintProfile `toml:"profiles"`
}

// LoadProfiles reads and validates a constraint ladder. Unknown keys are
// rejected so a typo does not silently widen a profile.
func LoadProfiles(path string) ([]capture.ConstraintProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles decodes and validates a ladder from TOML.
func ParseProfiles(data []byte) ([]capture.ConstraintProfile, error) {
	var file profilesFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	if err := capture.ValidateLadder(file.Profiles); err != nil {
		return nil, err
	}
	return file.Profiles, nil
}

// WriteProfiles stores a ladder in the format LoadProfiles reads.
func WriteProfiles(path string, profiles []capture.ConstraintProfile) error {
	data, err := toml.Marshal(profilesFile{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return os.Rename(tmp, path)
}
