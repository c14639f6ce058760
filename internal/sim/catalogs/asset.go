package catalogs

import (
	"fmt"
	"strings"
)

const DefaultNamespace = "game"

// AssetLocation is a namespaced content identifier ("namespace:name").
type AssetLocation struct {
	Namespace string
	Path      string
}

func NewAssetLocation(namespace, path string) AssetLocation {
	return AssetLocation{Namespace: strings.ToLower(namespace), Path: strings.ToLower(path)}
}

// ParseAssetLocation accepts "ns:name" or a bare "name" (namespace game).
func ParseAssetLocation(s string) (AssetLocation, error) {
	s = strings.TrimSpace(s)
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = DefaultNamespace, s
	}
	if ns == "" {
		ns = DefaultNamespace
	}
	if path == "" {
		return AssetLocation{}, fmt.Errorf("asset location %q: empty path", s)
	}
	if strings.Contains(path, ":") {
		return AssetLocation{}, fmt.Errorf("asset location %q: more than one namespace separator", s)
	}
	return NewAssetLocation(ns, path), nil
}

func MustAsset(s string) AssetLocation {
	a, err := ParseAssetLocation(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a AssetLocation) String() string {
	if a.Path == "" {
		return ""
	}
	return a.Namespace + ":" + a.Path
}

func (a AssetLocation) IsZero() bool { return a.Path == "" }

func (a AssetLocation) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AssetLocation) UnmarshalText(b []byte) error {
	v, err := ParseAssetLocation(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
