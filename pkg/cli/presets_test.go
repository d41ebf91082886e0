package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

func writePresets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPresets(t *testing.T) {
	path := writePresets(t, `
presets:
  - name: drone
    description: sweeping drone shot
    prompt: a sweeping drone shot over a fjord
    aspectRatio: "16:9"
    resolution: 1080p
    durationSeconds: 8
  - name: portrait
    prompt: studio portrait
    model: gemini-3-pro-image-preview
`)

	presets, err := loadPresets(path)
	gt.NoError(t, err)
	gt.Equal(t, len(presets), 2)

	drone := presets["drone"]
	gt.V(t, drone).NotNil()
	gt.Equal(t, drone.Prompt, "a sweeping drone shot over a fjord")
	gt.Equal(t, drone.Resolution, "1080p")
	gt.Equal(t, drone.DurationSeconds, 8)

	portrait := presets["portrait"]
	gt.V(t, portrait).NotNil()
	gt.Equal(t, portrait.Model, "gemini-3-pro-image-preview")
}

func TestLoadPresetsRejectsDuplicates(t *testing.T) {
	path := writePresets(t, `
presets:
  - name: dup
    prompt: one
  - name: dup
    prompt: two
`)

	_, err := loadPresets(path)
	gt.Error(t, err)
}

func TestLoadPresetsRejectsUnnamed(t *testing.T) {
	path := writePresets(t, `
presets:
  - prompt: anonymous
`)

	_, err := loadPresets(path)
	gt.Error(t, err)
}

func TestResolvePreset(t *testing.T) {
	path := writePresets(t, `
presets:
  - name: drone
    prompt: a sweeping drone shot
`)

	cfg := config{presetsFile: path}

	p, err := cfg.resolvePreset("drone")
	gt.NoError(t, err)
	gt.Equal(t, p.Prompt, "a sweeping drone shot")

	_, err = cfg.resolvePreset("missing")
	gt.Error(t, err)

	// no preset requested is not an error
	p, err = cfg.resolvePreset("")
	gt.NoError(t, err)
	gt.Nil(t, p)

	// preset requested without a file is
	cfg = config{}
	_, err = cfg.resolvePreset("drone")
	gt.Error(t, err)
}
