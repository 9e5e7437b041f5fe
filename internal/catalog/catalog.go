// Package catalog holds the read-only registry of printer models and the label
// media each model accepts.
//
// A Catalog is built once (normally from the embedded catalog.toml) and injected
// into whatever needs it. It is never mutated after construction, so it is safe
// for concurrent reads.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.toml
var defaultCatalog []byte

// Automatic is the media type sentinel that asks for detection from the PDF page box.
const Automatic = "automatic"

// Rotations are the orientations accepted by the ROTATION setting.
var Rotations = []int{0, 90, 180, 270}

// TapeSize is the media size in millimetres. Endless media has Height 0.
type TapeSize struct {
	Width  float64 `toml:"width" yaml:"width" json:"width"`
	Height float64 `toml:"height" yaml:"height" json:"height"`
}

// Label is one media profile.
type Label struct {
	Name        string   `toml:"name" yaml:"name" json:"name"`
	Identifiers []string `toml:"identifiers" yaml:"identifiers" json:"identifiers"`
	TapeSize    TapeSize `toml:"tape_size" yaml:"tape_size" json:"tape_size"`
}

// Identifier returns the identifier sent to the printer.
func (l Label) Identifier() string {
	if len(l.Identifiers) == 0 {
		return ""
	}
	return l.Identifiers[0]
}

// Endless reports whether the media is continuous tape.
func (l Label) Endless() bool {
	return l.TapeSize.Height == 0
}

// Matches reports whether id is one of the label's identifiers.
func (l Label) Matches(id string) bool {
	for _, candidate := range l.Identifiers {
		if candidate == id {
			return true
		}
	}
	return false
}

// Device is a printer model and its supported media, in declaration order.
type Device struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Labels []Label `json:"labels"`
}

// Label looks up a media profile by any of its identifiers.
func (d Device) Label(id string) (Label, bool) {
	for _, l := range d.Labels {
		if l.Matches(id) {
			return l, true
		}
	}
	return Label{}, false
}

// Choice is one entry of an enumerated setting.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog is an ordered, immutable set of devices.
type Catalog struct {
	devices []Device
	index   map[string]int
}

// New validates devices and builds a Catalog preserving their order.
func New(devices []Device) (*Catalog, error) {
	c := &Catalog{
		devices: make([]Device, 0, len(devices)),
		index:   make(map[string]int, len(devices)),
	}
	for _, d := range devices {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("device with empty id")
		}
		if _, dup := c.index[d.ID]; dup {
			return nil, fmt.Errorf("duplicate device id %q", d.ID)
		}
		for i, l := range d.Labels {
			if len(l.Identifiers) == 0 {
				return nil, fmt.Errorf("device %s: label %d (%q) has no identifiers", d.ID, i, l.Name)
			}
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		c.index[d.ID] = len(c.devices)
		c.devices = append(c.devices, d)
	}
	return c, nil
}

// Device returns the descriptor for a model id.
func (c *Catalog) Device(id string) (Device, bool) {
	i, ok := c.index[id]
	if !ok {
		return Device{}, false
	}
	return c.devices[i], true
}

// Devices returns all devices in declaration order.
func (c *Catalog) Devices() []Device {
	out := make([]Device, len(c.devices))
	copy(out, c.devices)
	return out
}

// ModelChoices lists (model id, display name) pairs.
func (c *Catalog) ModelChoices() []Choice {
	choices := make([]Choice, 0, len(c.devices))
	for _, d := range c.devices {
		choices = append(choices, Choice{Value: d.ID, Label: d.Name})
	}
	return choices
}

// MediaChoices lists "automatic" followed by every identifier of every label
// of every device. An identifier shared by several profiles keeps the name of
// its first occurrence.
func (c *Catalog) MediaChoices() []Choice {
	seen := map[string]bool{Automatic: true}
	choices := []Choice{{Value: Automatic, Label: "Automatic"}}
	for _, d := range c.devices {
		for _, l := range d.Labels {
			for _, id := range l.Identifiers {
				if seen[id] {
					continue
				}
				seen[id] = true
				choices = append(choices, Choice{Value: id, Label: l.Name})
			}
		}
	}
	return choices
}

// RotationChoices lists the accepted rotation angles.
func RotationChoices() []Choice {
	choices := make([]Choice, 0, len(Rotations))
	for _, deg := range Rotations {
		choices = append(choices, Choice{Value: fmt.Sprint(deg), Label: fmt.Sprintf("%d°", deg)})
	}
	return choices
}

// Format is the encoding of a catalog file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

type fileCatalog struct {
	LabelSets []fileLabelSet `toml:"label_set" yaml:"label_set"`
	Devices   []fileDevice   `toml:"device" yaml:"device"`
}

type fileLabelSet struct {
	ID      string  `toml:"id" yaml:"id"`
	Extends string  `toml:"extends" yaml:"extends"`
	Labels  []Label `toml:"label" yaml:"label"`
}

type fileDevice struct {
	ID     string  `toml:"id" yaml:"id"`
	Name   string  `toml:"name" yaml:"name"`
	Labels string  `toml:"labels" yaml:"labels"`
	Extra  []Label `toml:"label" yaml:"label"`
}

// Load decodes a catalog document.
func Load(r io.Reader, format Format) (*Catalog, error) {
	var doc fileCatalog
	switch format {
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode toml catalog: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("failed to decode yaml catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %q", format)
	}
	return doc.build()
}

// LoadFile loads a catalog, choosing the format from the file extension.
func LoadFile(path string) (*Catalog, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		format = FormatTOML
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("cannot infer catalog format from %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, format)
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(bytes.NewReader(defaultCatalog), FormatTOML)
	})
	return defaultCat, defaultErr
}

func (doc fileCatalog) build() (*Catalog, error) {
	sets := make(map[string]fileLabelSet, len(doc.LabelSets))
	for _, s := range doc.LabelSets {
		if s.ID == "" {
			return nil, fmt.Errorf("label_set with empty id")
		}
		sets[s.ID] = s
	}

	devices := make([]Device, 0, len(doc.Devices))
	for _, fd := range doc.Devices {
		var labels []Label
		if fd.Labels != "" {
			resolved, err := resolveSet(sets, fd.Labels, nil)
			if err != nil {
				return nil, fmt.Errorf("device %s: %w", fd.ID, err)
			}
			labels = resolved
		}
		labels = append(labels, fd.Extra...)
		devices = append(devices, Device{ID: fd.ID, Name: fd.Name, Labels: labels})
	}
	return New(devices)
}

// resolveSet flattens a label set and its ancestors, base labels first.
func resolveSet(sets map[string]fileLabelSet, id string, visiting []string) ([]Label, error) {
	for _, v := range visiting {
		if v == id {
			return nil, fmt.Errorf("label_set cycle: %s -> %s", strings.Join(visiting, " -> "), id)
		}
	}
	s, ok := sets[id]
	if !ok {
		return nil, fmt.Errorf("unknown label_set %q", id)
	}

	var labels []Label
	if s.Extends != "" {
		base, err := resolveSet(sets, s.Extends, append(visiting, id))
		if err != nil {
			return nil, err
		}
		labels = append(labels, base...)
	}
	return append(labels, s.Labels...), nil
}
