package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz int `yaml:"tick_rate_hz"`

	TwinePerCloth          int     `yaml:"twine_per_cloth"`
	SecondsPerCloth        float64 `yaml:"seconds_per_cloth"`
	SecondsPerClothSitting float64 `yaml:"seconds_per_cloth_sitting"`
	HelpExamples           int     `yaml:"help_examples"`

	NeedlesDurability  int    `yaml:"needles_durability"`
	MaxStack           int    `yaml:"max_stack"`
	InventorySlots     int    `yaml:"inventory_slots"`
	GroundItemTTLTicks uint64 `yaml:"ground_item_ttl_ticks"`

	Animation string `yaml:"animation"`
	Sound     Sound  `yaml:"sound"`
}

type Sound struct {
	Location string  `yaml:"location"`
	Volume   float64 `yaml:"volume"`
	Range    float64 `yaml:"range"`
	Loop     bool    `yaml:"loop"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:             20,
		TwinePerCloth:          4,
		SecondsPerCloth:        4.0,
		SecondsPerClothSitting: 3.0,
		HelpExamples:           3,
		NeedlesDurability:      300,
		MaxStack:               64,
		InventorySlots:         36,
		GroundItemTTLTicks:     20 * 60 * 5,
		Animation:              "startfire",
		Sound: Sound{
			Location: "knitting:sounds/knitting",
			Volume:   0.5,
			Range:    8,
		},
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only
// overrides the keys it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0")
	case t.TwinePerCloth <= 0:
		return fmt.Errorf("twine_per_cloth must be > 0")
	case t.SecondsPerCloth <= 0 || t.SecondsPerClothSitting <= 0:
		return fmt.Errorf("seconds_per_cloth and seconds_per_cloth_sitting must be > 0")
	case t.HelpExamples < 0:
		return fmt.Errorf("help_examples must be >= 0")
	case t.NeedlesDurability <= 0:
		return fmt.Errorf("needles_durability must be > 0")
	case t.MaxStack < t.TwinePerCloth:
		return fmt.Errorf("max_stack must hold at least twine_per_cloth")
	case t.InventorySlots <= 0:
		return fmt.Errorf("inventory_slots must be > 0")
	}
	return nil
}

// TickSeconds is the simulated duration of one tick.
func (t Tuning) TickSeconds() float64 { return 1 / float64(t.TickRateHz) }
