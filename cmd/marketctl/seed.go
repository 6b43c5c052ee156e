package main

import (
	"fmt"
	"os"

	catalogapp "github.com/b2bmarket/backend/internal/application/catalog"
	"github.com/spf13/cobra"
)

func newSeedCmd(current func() *app) *cobra.Command {
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
	}

	var file string
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Create or update categories from a YAML file",
		Example: `  marketctl seed categories --file categories.yaml

  # categories.yaml
  categories:
    - title: Industrial Tools
      kind: product
    - title: Logistics
      slug: freight
      kind: service`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			seeds, err := catalogapp.ParseCategorySeeds(f)
			if err != nil {
				return err
			}
			a := current()
			result, err := catalogapp.NewCategorySeeder(a.categories, a.log).Seed(cmd.Context(), seeds)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories: %d created, %d updated, %d unchanged\n",
				result.Created, result.Updated, result.Unchanged)
			return nil
		},
	}
	categories.Flags().StringVarP(&file, "file", "f", "", "YAML file with a categories list")
	_ = categories.MarkFlagRequired("file")

	seed.AddCommand(categories)
	return seed
}
