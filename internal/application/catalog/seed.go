package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CategorySeed is one category in a seed file
type CategorySeed struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
	Kind        string `yaml:"kind"`
}

type categorySeedFile struct {
	Categories []CategorySeed `yaml:"categories"`
}

// ParseCategorySeeds reads a YAML document with a top level categories list
func ParseCategorySeeds(r io.Reader) ([]CategorySeed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file categorySeedFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse category seeds: %w", err)
	}
	return file.Categories, nil
}

// SeedResult counts what a seed run changed
type SeedResult struct {
	Created   int
	Updated   int
	Unchanged int
}

// CategorySeeder creates or updates categories keyed by slug
type CategorySeeder struct {
	categories catalog.CategoryRepository
	logger     *zap.Logger
}

// NewCategorySeeder creates a seeder
func NewCategorySeeder(categories catalog.CategoryRepository, logger *zap.Logger) *CategorySeeder {
	return &CategorySeeder{categories: categories, logger: logger}
}

// Seed applies seeds in order. Every seed is validated before anything is
// written, so a bad file leaves the catalog untouched.
func (s *CategorySeeder) Seed(ctx context.Context, seeds []CategorySeed) (SeedResult, error) {
	var result SeedResult

	wanted := make([]*catalog.Category, 0, len(seeds))
	seen := make(map[string]int, len(seeds))
	for i, seed := range seeds {
		c, err := catalog.NewCategory(seed.Title, seed.Slug, catalog.CategoryKind(seed.Kind))
		if err != nil {
			return result, fmt.Errorf("category %d: %w", i+1, err)
		}
		c.Description = seed.Description
		if prev, ok := seen[c.Slug]; ok {
			return result, fmt.Errorf("category %d: slug %q repeats category %d", i+1, c.Slug, prev)
		}
		seen[c.Slug] = i + 1
		wanted = append(wanted, c)
	}

	for _, c := range wanted {
		existing, err := s.categories.FindBySlug(ctx, c.Slug)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			if err := s.categories.Create(ctx, c); err != nil {
				return result, fmt.Errorf("create category %q: %w", c.Slug, err)
			}
			result.Created++
			s.logger.Info("Category created", zap.String("slug", c.Slug), zap.String("id", c.ID))
		case err != nil:
			return result, fmt.Errorf("find category %q: %w", c.Slug, err)
		case existing.Title == c.Title && existing.Description == c.Description && existing.Kind == c.Kind:
			result.Unchanged++
		default:
			existing.Title = c.Title
			existing.Description = c.Description
			existing.Kind = c.Kind
			if err := s.categories.Update(ctx, existing); err != nil {
				return result, fmt.Errorf("update category %q: %w", c.Slug, err)
			}
			result.Updated++
			s.logger.Info("Category updated", zap.String("slug", c.Slug), zap.String("id", existing.ID))
		}
	}
	return result, nil
}
