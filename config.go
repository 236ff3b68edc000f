package placer

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"

	"github.com/gekko3d/placer/rt/bounds"
	"github.com/gekko3d/placer/rt/instance"
)

// Config holds the editor settings consumed by the spatial core.
type Config struct {
	// MaxInstances is the hard capacity of the instance buffer.
	MaxInstances int `json:"max_instances"`

	// SnapThreshold is the distance under which a dragged item snaps to a
	// neighbour's face. Zero disables snapping.
	SnapThreshold float32 `json:"snap_threshold"`
	SnapEnabled   bool    `json:"snap_enabled"`

	// Colours are CSS colour names or #rrggbb.
	HighlightColor string         `json:"highlight_color"`
	DefaultColor   string         `json:"default_color"`
	GroupColors    map[int]string `json:"group_colors,omitempty"`

	Kinds map[string]KindConfig `json:"kinds,omitempty"`

	Debug bool `json:"debug"`
}

// KindConfig describes the local bounds of an item kind. Set either Extents
// or both Min and Max.
type KindConfig struct {
	Extents *[3]float32 `json:"extents,omitempty"`
	Min     *[3]float32 `json:"min,omitempty"`
	Max     *[3]float32 `json:"max,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		MaxInstances:   50000,
		SnapThreshold:  20,
		SnapEnabled:    true,
		HighlightColor: "gold",
		DefaultColor:   "lightgray",
		GroupColors:    map[int]string{},
		Kinds:          map[string]KindConfig{},
	}
}

// LoadConfig reads a JSON config on top of DefaultConfig. A missing file is
// not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c Config) Validate() error {
	if c.MaxInstances <= 0 {
		return fmt.Errorf("max_instances must be positive, got %d", c.MaxInstances)
	}
	if c.SnapThreshold < 0 {
		return fmt.Errorf("snap_threshold must not be negative, got %g", c.SnapThreshold)
	}
	if _, err := c.Palette(); err != nil {
		return err
	}
	for name, k := range c.Kinds {
		if _, err := k.Local(); err != nil {
			return fmt.Errorf("kind %q: %w", name, err)
		}
	}
	return nil
}

// Palette resolves the configured colour strings.
func (c Config) Palette() (instance.Palette, error) {
	var p instance.Palette
	var err error

	if p.Highlight, err = ParseColor(c.HighlightColor); err != nil {
		return p, fmt.Errorf("highlight_color: %w", err)
	}
	if p.Default, err = ParseColor(c.DefaultColor); err != nil {
		return p, fmt.Errorf("default_color: %w", err)
	}

	p.Groups = make(map[int]uint32, len(c.GroupColors))
	for group, s := range c.GroupColors {
		if group <= 0 {
			return p, fmt.Errorf("group_colors: group id must be positive, got %d", group)
		}
		col, err := ParseColor(s)
		if err != nil {
			return p, fmt.Errorf("group_colors[%d]: %w", group, err)
		}
		p.Groups[group] = col
	}
	return p, nil
}

// ParseColor accepts a CSS colour name or #rrggbb and returns 0xRRGGBB.
func ParseColor(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if len(s) != 7 {
			return 0, fmt.Errorf("invalid colour %q: want #rrggbb", s)
		}
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid colour %q: %w", s, err)
		}
		return uint32(v), nil
	}

	c, ok := colornames.Map[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown colour name %q", s)
	}
	return instance.PackRGB(c.R, c.G, c.B), nil
}

func (k KindConfig) Local() (bounds.Local, error) {
	switch {
	case k.Extents != nil && (k.Min != nil || k.Max != nil):
		return bounds.Local{}, errors.New("set either extents or min/max, not both")
	case k.Extents != nil:
		e := *k.Extents
		if e[0] < 0 || e[1] < 0 || e[2] < 0 {
			return bounds.Local{}, fmt.Errorf("extents must not be negative, got %v", e)
		}
		return bounds.FromExtents(e[0], e[1], e[2]), nil
	case k.Min != nil && k.Max != nil:
		lo, hi := mgl32.Vec3(*k.Min), mgl32.Vec3(*k.Max)
		if hi.X() < lo.X() || hi.Y() < lo.Y() || hi.Z() < lo.Z() {
			return bounds.Local{}, fmt.Errorf("min %v exceeds max %v", lo, hi)
		}
		return bounds.FromLocalBox(lo, hi), nil
	default:
		return bounds.Local{}, errors.New("missing extents or min/max")
	}
}
