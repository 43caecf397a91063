package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-substack-watch/internal/substack"
)

func newPostsCmd() *cobra.Command {
	var (
		sort     string
		limit    int
		search   string
		podcasts bool
	)
	cmd := &cobra.Command{
		Use:   "posts <newsletter>",
		Short: "List a newsletter's archive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := substack.NewNewsletter(args[0], a.opts)
			if err != nil {
				return err
			}
			q := substack.ArchiveQuery{Sort: sort, Search: search}
			if podcasts {
				q.Type = "podcast"
			}
			if search != "" || podcasts {
				q.Sort = "new"
			} else if sort != "new" && sort != "top" {
				return fmt.Errorf("invalid sort %q: want new or top", sort)
			}
			metas, err := n.FetchPaginated(cmd.Context(), q, limit, substack.DefaultPageSize)
			if err != nil {
				return err
			}
			t := newTable(a.out)
			t.AppendHeader(table.Row{"Date", "Title", "Audience", "Slug"})
			for _, m := range metas {
				date := m.PostDate
				if len(date) > 10 {
					date = date[:10]
				}
				t.AppendRow(table.Row{date, clip(m.Title, 60), m.Audience, m.Slug})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d posts", len(metas))})
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&sort, "sort", "new", "new|top")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum posts (0: whole archive)")
	cmd.Flags().StringVar(&search, "search", "", "only posts matching this query")
	cmd.Flags().BoolVar(&podcasts, "podcasts", false, "only podcast episodes")
	return cmd
}

func newAuthorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authors <newsletter>",
		Short: "List a newsletter's public authors.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := substack.NewNewsletter(args[0], a.opts)
			if err != nil {
				return err
			}
			authors, err := n.Authors(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(a.out)
			t.AppendHeader(table.Row{"ID", "Name", "Handle", "Role"})
			for _, au := range authors {
				t.AppendRow(table.Row{au.ID, au.Name, au.Handle, au.Role})
			}
			t.Render()
			return nil
		},
	}
}

func newRecommendationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommendations <newsletter>",
		Short: "List the newsletters a newsletter recommends.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := substack.NewNewsletter(args[0], a.opts)
			if err != nil {
				return err
			}
			recs := n.Recommendations(cmd.Context())
			t := newTable(a.out)
			t.AppendHeader(table.Row{"#", "Newsletter"})
			for i, r := range recs {
				t.AppendRow(table.Row{i + 1, r.URL()})
			}
			t.Render()
			return nil
		},
	}
}

func newFeedCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed <newsletter>",
		Short: "Show a newsletter's RSS feed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			n, err := substack.NewNewsletter(args[0], a.opts)
			if err != nil {
				return err
			}
			items, err := n.Feed(cmd.Context(), limit)
			if err != nil {
				return err
			}
			t := newTable(a.out)
			t.AppendHeader(table.Row{"Published", "Title", "Author", "Link"})
			for _, it := range items {
				t.AppendRow(table.Row{day(it.Published), clip(it.Title, 60), it.Author, it.Link})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries (0: all)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search publications platform-wide.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			pubs, err := substack.SearchPublications(cmd.Context(), args[0], page, limit, a.opts)
			if err != nil {
				return err
			}
			t := newTable(a.out)
			t.AppendHeader(table.Row{"ID", "Name", "Site"})
			for _, p := range pubs {
				t.AppendRow(table.Row{strconv.FormatInt(p.ID, 10), clip(p.Name, 50), p.SiteURL()})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "result page")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "results per page")
	return cmd
}
