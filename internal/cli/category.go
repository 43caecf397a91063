package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-substack-watch/internal/substack"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List every category.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			cats, err := substack.ListCategories(cmd.Context(), a.opts)
			if err != nil {
				return err
			}
			t := newTable(a.out)
			t.AppendHeader(table.Row{"ID", "Name", "Slug"})
			for _, c := range cats {
				t.AppendRow(table.Row{c.ID, c.Name, c.Slug})
			}
			t.Render()
			return nil
		},
	}
}

func newCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "category <name|id>",
		Short: "List a category's newsletters (a numeric argument is taken as the id).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			var c *substack.Category
			if id, err := strconv.ParseInt(args[0], 10, 64); err == nil {
				c = substack.NewCategoryByID(id, a.opts)
			} else {
				c = substack.NewCategoryByName(args[0], a.opts)
			}
			members, err := c.Members(cmd.Context(), false)
			if err != nil {
				return err
			}
			name, _ := c.Name(cmd.Context())
			t := newTable(a.out)
			t.SetTitle(name)
			t.AppendHeader(table.Row{"ID", "Name", "Site"})
			for _, m := range members {
				t.AppendRow(table.Row{m.ID, clip(m.Name, 50), m.SiteURL()})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d newsletters", len(members))})
			t.Render()
			return nil
		},
	}
}
