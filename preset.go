package placer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

type PresetData struct {
	Items []Item `json:"items"`
}

// SavePreset writes every item to filename as JSON.
func (e *Editor) SavePreset(filename string) error {
	preset := PresetData{Items: e.Items()}
	bytes, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("save preset %s: %w", filename, err)
	}
	if err := os.WriteFile(filename, bytes, 0644); err != nil {
		return fmt.Errorf("save preset %s: %w", filename, err)
	}
	e.log.Infof("saved preset %s with %d items", filename, len(preset.Items))
	return nil
}

// LoadPreset replaces the collection with the items in filename. The
// current collection is kept if the file cannot be read.
func (e *Editor) LoadPreset(filename string) error {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("load preset %s: %w", filename, err)
	}

	var preset PresetData
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return fmt.Errorf("load preset %s: %w", filename, err)
	}

	// Older presets omit scale.
	for i := range preset.Items {
		if preset.Items[i].Scale == (mgl32.Vec3{}) {
			preset.Items[i].Scale = mgl32.Vec3{1, 1, 1}
		}
	}

	if err := e.SetItems(preset.Items); err != nil {
		return fmt.Errorf("load preset %s: %w", filename, err)
	}
	e.log.Infof("loaded preset %s with %d items", filename, len(preset.Items))
	return nil
}
