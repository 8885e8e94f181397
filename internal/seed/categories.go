package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"blogspace/internal/models"
	"blogspace/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed categories.yml
var defaultCategories []byte

type categoryFile struct {
	Categories []models.Category `yaml:"categories"`
}

// LoadCategories reads the category seed file at path, or the built-in list
// when path is empty. Missing slugs are derived from the name.
func LoadCategories(path string) ([]models.Category, error) {
	raw := defaultCategories
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read categories file: %w", err)
		}
		raw = b
	}
	return parseCategories(raw)
}

func parseCategories(raw []byte) ([]models.Category, error) {
	var file categoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse categories: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Categories))
	out := make([]models.Category, 0, len(file.Categories))
	for i, c := range file.Categories {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i+1)
		}
		c.Slug = strings.TrimSpace(c.Slug)
		if c.Slug == "" {
			c.Slug = validation.Slugify(c.Name)
		}
		if _, dup := seen[c.Slug]; dup {
			return nil, fmt.Errorf("duplicate category slug %q", c.Slug)
		}
		seen[c.Slug] = struct{}{}
		c.Description = strings.TrimSpace(c.Description)
		out = append(out, c)
	}
	return out, nil
}
