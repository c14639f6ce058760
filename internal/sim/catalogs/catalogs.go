package catalogs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ModWool           = "wool"
	ModTailorsDelight = "tailorsdelight"
)

// Palette is a family of colour/type variants contributed by one content mod.
// Every variant v registers InputTemplate(v) -> OutputTemplate(v).
type Palette struct {
	Mod            string
	InputTemplate  string
	OutputTemplate string
	OutputKind     ProductKind
	Variants       []string
}

func (p Palette) Rules() []ConversionRule {
	out := make([]ConversionRule, 0, len(p.Variants))
	for _, v := range p.Variants {
		out = append(out, ConversionRule{
			Input:  MustAsset(fmt.Sprintf(p.InputTemplate, v)),
			Output: Product{ID: MustAsset(fmt.Sprintf(p.OutputTemplate, v)), Kind: p.OutputKind},
		})
	}
	return out
}

var palettes = []Palette{
	{
		Mod:            ModWool,
		InputTemplate:  "wool:twine-wool-%s",
		OutputTemplate: "wool:wool-%s",
		OutputKind:     KindBlock,
		Variants: []string{"mordant", "plain", "black", "blue", "brown",
			"gray", "green", "orange", "pink", "purple", "red", "white",
			"yellow", "darkblue", "darkbrown", "darkgreen", "darkred"},
	},
	{
		Mod:            ModTailorsDelight,
		InputTemplate:  "tailorsdelight:twine-%s",
		OutputTemplate: "game:cloth-%s",
		OutputKind:     KindItem,
		Variants: []string{"black", "blue", "brown", "gray", "green",
			"orange", "pink", "purple", "red", "white", "yellow"},
	},
	{
		Mod:            ModTailorsDelight,
		InputTemplate:  "tailorsdelight:twine-%s",
		OutputTemplate: "tailorsdelight:cloth-%s",
		OutputKind:     KindItem,
		Variants:       []string{"darkblue", "darkbrown", "darkgreen", "darkred"},
	},
}

// BaseRule is registered whether or not any optional mod is enabled.
var BaseRule = ConversionRule{
	Input:  MustAsset("game:flaxtwine"),
	Output: Product{ID: MustAsset("game:linen-normal-down"), Kind: KindBlock},
}

// Palettes returns a copy of the built-in palette definitions.
func Palettes() []Palette {
	out := make([]Palette, len(palettes))
	for i, p := range palettes {
		p.Variants = append([]string(nil), p.Variants...)
		out[i] = p
	}
	return out
}

// Populate builds the frozen conversion table for a set of enabled mods. If two
// mods map the same input, the later registration wins.
func Populate(enabled ModSet) *ConversionTable {
	t := NewConversionTable()
	for _, p := range palettes {
		if !enabled.Enabled(p.Mod) {
			continue
		}
		for _, r := range p.Rules() {
			t.Register(r.Input, r.Output)
		}
	}
	t.Register(BaseRule.Input, BaseRule.Output)
	t.Freeze()
	return t
}

// ModSet is the set of optional content mods present in this process.
type ModSet map[string]struct{}

func NewModSet(ids ...string) ModSet {
	s := ModSet{}
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func (s ModSet) Enabled(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ModSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type modsFile struct {
	Enabled []string `yaml:"enabled"`
}

// LoadMods reads mods.yaml ("enabled: [wool, tailorsdelight]").
func LoadMods(path string) (ModSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f modsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("mods.yaml: %w", err)
	}
	return NewModSet(f.Enabled...), nil
}

type Catalogs struct {
	Mods        ModSet
	Conversions *ConversionTable
}

// Load reads <configDir>/mods.yaml and populates the conversion table. A
// missing mods.yaml means no optional mods are enabled.
func Load(configDir string) (*Catalogs, error) {
	mods, err := LoadMods(filepath.Join(configDir, "mods.yaml"))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		mods = NewModSet()
	}
	return &Catalogs{Mods: mods, Conversions: Populate(mods)}, nil
}
