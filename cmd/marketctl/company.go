package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/b2bmarket/backend/internal/domain/company"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/spf13/cobra"
)

func newCompanyCmd(current func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Inspect and activate companies",
	}

	activate := &cobra.Command{
		Use:   "activate <id>",
		Short: "Activate a pending company and notify its users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := current().activation.Activate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is %s\n", c.Name, c.Slug, c.Status)
			return nil
		},
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List companies, optionally by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := company.Filter{Status: company.Status(status)}
			if status != "" && !filter.Status.IsValid() {
				return fmt.Errorf("unknown status %q: use pending, active or suspended", status)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tNAME\tSTATUS\tCREATED")
			for page := 1; ; page++ {
				filter.Pagination = shared.NewPagination(page, shared.MaxPageSize)
				result, err := current().companies.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				for _, c := range result.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Slug, c.Name, c.Status, c.CreatedAt.Format("2006-01-02"))
				}
				if page >= result.TotalPages {
					break
				}
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&status, "status", "", "Only companies with this status (pending, active, suspended)")

	cmd.AddCommand(activate, list)
	return cmd
}
