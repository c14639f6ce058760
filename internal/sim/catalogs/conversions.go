package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type ProductKind string

const (
	KindItem  ProductKind = "ITEM"
	KindBlock ProductKind = "BLOCK"
)

type Product struct {
	ID   AssetLocation `json:"id"`
	Kind ProductKind   `json:"kind"`
}

type ConversionRule struct {
	Input  AssetLocation `json:"input"`
	Output Product       `json:"output"`
}

// ConversionTable maps an input material to the product it is knitted into.
// It is written once during startup, frozen, and only read afterwards; readers
// need no locking after Freeze.
type ConversionTable struct {
	outputs map[AssetLocation]Product
	order   []AssetLocation
	frozen  bool
}

func NewConversionTable() *ConversionTable {
	return &ConversionTable{outputs: map[AssetLocation]Product{}}
}

// Register adds or overwrites the mapping for input. The last registration for
// a given input wins; its position in Keys stays where it was first added.
func (t *ConversionTable) Register(input AssetLocation, output Product) {
	if t.frozen {
		panic(fmt.Sprintf("catalogs: register %s on frozen conversion table", input))
	}
	if _, ok := t.outputs[input]; !ok {
		t.order = append(t.order, input)
	}
	t.outputs[input] = output
}

func (t *ConversionTable) Lookup(input AssetLocation) (Product, bool) {
	if t == nil {
		return Product{}, false
	}
	p, ok := t.outputs[input]
	return p, ok
}

func (t *ConversionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Keys returns the input ids in registration order.
func (t *ConversionTable) Keys() []AssetLocation {
	if t == nil {
		return nil
	}
	out := make([]AssetLocation, len(t.order))
	copy(out, t.order)
	return out
}

// Examples returns at most n input ids, in key order.
func (t *ConversionTable) Examples(n int) []AssetLocation {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.order) {
		n = len(t.order)
	}
	out := make([]AssetLocation, n)
	copy(out, t.order[:n])
	return out
}

func (t *ConversionTable) Rules() []ConversionRule {
	if t == nil {
		return nil
	}
	out := make([]ConversionRule, 0, len(t.order))
	for _, in := range t.order {
		out = append(out, ConversionRule{Input: in, Output: t.outputs[in]})
	}
	return out
}

func (t *ConversionTable) Freeze()      { t.frozen = true }
func (t *ConversionTable) Frozen() bool { return t != nil && t.frozen }

// Digest identifies the rule set; clients compare it to detect content drift.
func (t *ConversionTable) Digest() string {
	b, _ := json.Marshal(t.Rules())
	return sha256Hex(b)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
