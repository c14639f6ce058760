package catalogs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPopulate_BaseOnly(t *testing.T) {
	tbl := Populate(NewModSet())
	if tbl.Len() != 1 {
		t.Fatalf("expected only the base rule, got %d", tbl.Len())
	}
	out, ok := tbl.Lookup(MustAsset("game:flaxtwine"))
	if !ok || out.ID.String() != "game:linen-normal-down" || out.Kind != KindBlock {
		t.Fatalf("unexpected base rule: %+v ok=%v", out, ok)
	}
	if !tbl.Frozen() {
		t.Fatalf("populated table must be frozen")
	}
}

func TestPopulate_AllMods(t *testing.T) {
	tbl := Populate(NewModSet(ModWool, ModTailorsDelight))
	if tbl.Len() != 17+11+4+1 {
		t.Fatalf("unexpected rule count %d", tbl.Len())
	}

	cases := map[string]Product{
		"wool:twine-wool-mordant":         {ID: MustAsset("wool:wool-mordant"), Kind: KindBlock},
		"wool:twine-wool-darkred":         {ID: MustAsset("wool:wool-darkred"), Kind: KindBlock},
		"tailorsdelight:twine-blue":       {ID: MustAsset("game:cloth-blue"), Kind: KindItem},
		"tailorsdelight:twine-darkblue":   {ID: MustAsset("tailorsdelight:cloth-darkblue"), Kind: KindItem},
		"tailorsdelight:twine-darkbrown":  {ID: MustAsset("tailorsdelight:cloth-darkbrown"), Kind: KindItem},
		"game:flaxtwine":                  {ID: MustAsset("game:linen-normal-down"), Kind: KindBlock},
	}
	for in, want := range cases {
		got, ok := tbl.Lookup(MustAsset(in))
		if !ok || got != want {
			t.Fatalf("%s: got %+v ok=%v, want %+v", in, got, ok, want)
		}
	}
	if _, ok := tbl.Lookup(MustAsset("tailorsdelight:twine-mordant")); ok {
		t.Fatalf("mordant is a wool-only variant")
	}
}

func TestPopulate_SingleMod(t *testing.T) {
	tbl := Populate(NewModSet("Wool"))
	if tbl.Len() != 18 {
		t.Fatalf("expected wool palette plus base, got %d", tbl.Len())
	}
	if _, ok := tbl.Lookup(MustAsset("tailorsdelight:twine-red")); ok {
		t.Fatalf("tailorsdelight rule registered while mod disabled")
	}
}

func TestPalettes_ReturnsCopy(t *testing.T) {
	ps := Palettes()
	variants := map[string]int{}
	for _, p := range ps {
		variants[p.Mod] += len(p.Variants)
	}
	if len(ps) != 3 || variants[ModWool] != 17 || variants[ModTailorsDelight] != 15 {
		t.Fatalf("unexpected palettes %v", variants)
	}
	ps[0].Variants[0] = "mutated"
	if Palettes()[0].Variants[0] == "mutated" {
		t.Fatalf("Palettes must not expose the built-in definitions")
	}
	if Populate(NewModSet(ModWool)).Len() != 18 {
		t.Fatalf("mutating a copy changed Populate")
	}
}

func TestConversionTable_LastWriteWins(t *testing.T) {
	tbl := NewConversionTable()
	in := MustAsset("game:flaxtwine")
	tbl.Register(in, Product{ID: MustAsset("game:a"), Kind: KindItem})
	tbl.Register(MustAsset("game:other"), Product{ID: MustAsset("game:c"), Kind: KindItem})
	tbl.Register(in, Product{ID: MustAsset("game:b"), Kind: KindBlock})

	if tbl.Len() != 2 {
		t.Fatalf("expected 2 unique keys, got %d", tbl.Len())
	}
	got, _ := tbl.Lookup(in)
	if got.ID.String() != "game:b" || got.Kind != KindBlock {
		t.Fatalf("expected last registration to win, got %+v", got)
	}
	keys := tbl.Keys()
	if keys[0] != in {
		t.Fatalf("overwrite must keep the original key position: %v", keys)
	}
}

func TestConversionTable_FrozenRejectsWrites(t *testing.T) {
	tbl := NewConversionTable()
	tbl.Freeze()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on frozen register")
		}
	}()
	tbl.Register(MustAsset("game:x"), Product{ID: MustAsset("game:y")})
}

func TestConversionTable_Examples(t *testing.T) {
	tbl := NewConversionTable()
	for i := 0; i < 300; i++ {
		tbl.Register(NewAssetLocation("game", "twine-"+string(rune('a'+i%26))+string(rune('a'+i/26))), Product{ID: MustAsset("game:cloth")})
	}
	if got := tbl.Examples(3); len(got) != 3 {
		t.Fatalf("expected 3 examples, got %d", len(got))
	}
	if got := NewConversionTable().Examples(3); len(got) != 0 {
		t.Fatalf("expected no examples from an empty table, got %v", got)
	}
}

func TestConversionTable_DigestStable(t *testing.T) {
	a := Populate(NewModSet(ModWool))
	b := Populate(NewModSet(ModWool))
	c := Populate(NewModSet(ModTailorsDelight))
	if a.Digest() != b.Digest() {
		t.Fatalf("same mod set must produce the same digest")
	}
	if a.Digest() == c.Digest() {
		t.Fatalf("different mod sets must produce different digests")
	}
}

func TestParseAssetLocation(t *testing.T) {
	a, err := ParseAssetLocation("flaxtwine")
	if err != nil || a.String() != "game:flaxtwine" {
		t.Fatalf("default namespace: %v %v", a, err)
	}
	a, err = ParseAssetLocation("Wool:Twine-Wool-Red")
	if err != nil || a.String() != "wool:twine-wool-red" {
		t.Fatalf("lowercase: %v %v", a, err)
	}
	for _, bad := range []string{"", "wool:", "a:b:c"} {
		if _, err := ParseAssetLocation(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestLoad_ModsFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mods.yaml"), []byte("enabled:\n  - tailorsdelight\n"), 0o644); err != nil {
		t.Fatalf("write mods.yaml: %v", err)
	}
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Mods.Enabled(ModTailorsDelight) || c.Mods.Enabled(ModWool) {
		t.Fatalf("unexpected mods: %v", c.Mods.Sorted())
	}
	if c.Conversions.Len() != 16 {
		t.Fatalf("expected 16 rules, got %d", c.Conversions.Len())
	}
}

func TestLoad_MissingModsFile(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Conversions.Len() != 1 {
		t.Fatalf("expected base rule only, got %d", c.Conversions.Len())
	}
}
