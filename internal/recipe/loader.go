package recipe

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed builtins/*.toml
var builtinFS embed.FS

const (
	SourceBuiltin = "builtin"
	SourceFile    = "file"
)

// Builtins returns the recipes shipped with the binary, sorted by name.
func Builtins() ([]Recipe, error) {
	return loadFS(builtinFS, "builtins", SourceBuiltin)
}

// LoadDir reads every *.toml recipe in dir. A missing directory yields no
// recipes and no error.
func LoadDir(dir string) ([]Recipe, error) {
	if dir == "" {
		return nil, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return loadFS(os.DirFS(dir), ".", SourceFile)
}

// Parse decodes a single TOML recipe and validates it.
func Parse(data []byte) (Recipe, error) {
	var r Recipe
	if _, err := toml.Decode(string(data), &r); err != nil {
		return Recipe{}, fmt.Errorf("parse TOML: %w", err)
	}
	r.SystemPrompt = strings.TrimSpace(r.SystemPrompt)
	r.UserPromptTemplate = strings.TrimSpace(r.UserPromptTemplate)
	if err := r.Validate(); err != nil {
		return Recipe{}, err
	}
	return r, nil
}

// Merge overlays later lists on earlier ones by recipe id and returns the
// result sorted by name.
func Merge(lists ...[]Recipe) []Recipe {
	byID := make(map[string]Recipe)
	for _, list := range lists {
		for _, r := range list {
			byID[r.ID] = r
		}
	}
	out := make([]Recipe, 0, len(byID))
	for _, r := range byID {
		out = append(out, r)
	}
	sortByName(out)
	return out
}

func loadFS(fsys fs.FS, dir, source string) ([]Recipe, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read recipes dir: %w", err)
	}

	var recipes []Recipe
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		r, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(entry.Name()), err)
		}
		r.Source = source
		recipes = append(recipes, r)
	}
	sortByName(recipes)
	return recipes, nil
}

func sortByName(rs []Recipe) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].Name != rs[j].Name {
			return rs[i].Name < rs[j].Name
		}
		return rs[i].ID < rs[j].ID
	})
}
