// Package fixtures loads the seed datasets the resource tables start from.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"marketflow/internal/store"
)

//go:embed data/*.json
var embedded embed.FS

// Load reads products.json, categories.json, orders.json and reviews.json.
// An empty dir selects the datasets compiled into the binary.
func Load(dir string) (store.Seed, error) {
	var fsys fs.FS
	if dir == "" {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			return store.Seed{}, err
		}
		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}
	return LoadFS(fsys)
}

// LoadFS reads the four datasets from fsys
func LoadFS(fsys fs.FS) (store.Seed, error) {
	var seed store.Seed

	files := []struct {
		name string
		dst  interface{}
	}{
		{"products.json", &seed.Products},
		{"categories.json", &seed.Categories},
		{"orders.json", &seed.Orders},
		{"reviews.json", &seed.Reviews},
	}

	for _, f := range files {
		raw, err := fs.ReadFile(fsys, f.name)
		if err != nil {
			return store.Seed{}, fmt.Errorf("failed to read fixture %s: %w", f.name, err)
		}
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return store.Seed{}, fmt.Errorf("failed to parse fixture %s: %w", f.name, err)
		}
	}

	return seed, nil
}
