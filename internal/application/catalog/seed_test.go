package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/b2bmarket/backend/internal/domain/catalog"
	"github.com/b2bmarket/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
categories:
  - title: Industrial Tools
    description: Hand and power tools
    kind: product
  - title: Logistics
    slug: freight
    kind: service
  - title: Packaging
`

func TestParseCategorySeeds(t *testing.T) {
	seeds, err := ParseCategorySeeds(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, seeds, 3)
	assert.Equal(t, CategorySeed{Title: "Industrial Tools", Description: "Hand and power tools", Kind: "product"}, seeds[0])
	assert.Equal(t, "freight", seeds[1].Slug)
	assert.Empty(t, seeds[2].Kind)

	t.Run("empty document", func(t *testing.T) {
		seeds, err := ParseCategorySeeds(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, seeds)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseCategorySeeds(strings.NewReader("categories:\n  - title: X\n    colour: red\n"))
		assert.Error(t, err)
	})
}

func TestCategorySeeder(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	seeder := NewCategorySeeder(env.Categories, env.Logger)

	seeds, err := ParseCategorySeeds(strings.NewReader(seedYAML))
	require.NoError(t, err)

	result, err := seeder.Seed(ctx, seeds)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Created: 3}, result)

	tools, err := env.Categories.FindBySlug(ctx, "industrial-tools")
	require.NoError(t, err)
	assert.Equal(t, catalog.CategoryKindProduct, tools.Kind)
	packaging, err := env.Categories.FindBySlug(ctx, "packaging")
	require.NoError(t, err)
	assert.Equal(t, catalog.CategoryKindBoth, packaging.Kind)

	t.Run("second run changes nothing", func(t *testing.T) {
		result, err := seeder.Seed(ctx, seeds)
		require.NoError(t, err)
		assert.Equal(t, SeedResult{Unchanged: 3}, result)
	})

	t.Run("updates by slug", func(t *testing.T) {
		result, err := seeder.Seed(ctx, []CategorySeed{{Title: "Freight and Logistics", Slug: "freight", Kind: "service"}})
		require.NoError(t, err)
		assert.Equal(t, SeedResult{Updated: 1}, result)

		freight, err := env.Categories.FindBySlug(ctx, "freight")
		require.NoError(t, err)
		assert.Equal(t, "Freight and Logistics", freight.Title)

		all, err := env.Categories.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("invalid seed writes nothing", func(t *testing.T) {
		_, err := seeder.Seed(ctx, []CategorySeed{{Title: "Chemicals"}, {Title: "Bad", Kind: "gadget"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "category 2")

		all, err := env.Categories.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("repeated slug", func(t *testing.T) {
		_, err := seeder.Seed(ctx, []CategorySeed{{Title: "Chemicals"}, {Title: "chemicals!"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repeats category 1")
	})
}
