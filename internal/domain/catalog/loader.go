package catalog

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type catalogFile struct {
	Products []Product `koanf:"products"`
}

// LoadFile reads a YAML catalog of the form `products: [...]`.
func LoadFile(path string) (*Catalog, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}

	var doc catalogFile
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if len(doc.Products) == 0 {
		return nil, fmt.Errorf("catalog %s has no products", path)
	}
	return New(doc.Products)
}

// Load returns the file catalog when path is set, the seed list otherwise.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
