package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-substack-watch/internal/substack"
)

func newPostCmd() *cobra.Command {
	var html, metaOnly bool
	cmd := &cobra.Command{
		Use:   "post <url>",
		Short: "Print one post's text (or HTML).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			p, err := substack.NewPost(args[0], a.opts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			m, err := p.Metadata(ctx, false)
			if err != nil {
				return err
			}
			if metaOnly {
				t := newTable(a.out)
				var authors []string
				for _, b := range m.Bylines {
					authors = append(authors, b.Name)
				}
				t.AppendRows([]table.Row{
					{"Title", m.Title},
					{"Subtitle", deref(m.Subtitle)},
					{"Date", m.PostDate},
					{"Audience", m.Audience},
					{"Authors", strings.Join(authors, ", ")},
					{"URL", p.URL()},
				})
				t.Render()
				return nil
			}

			var body string
			var ok bool
			if html {
				body, ok, err = p.HTMLContent(ctx, false)
			} else {
				body, ok, err = p.TextContent(ctx, false)
			}
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("post %s has no body (audience %s)", p.URL(), m.Audience)
			}
			fmt.Fprintf(a.out, "%s\n\n%s\n", m.Title, body)
			return nil
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "print the raw HTML body")
	cmd.Flags().BoolVar(&metaOnly, "meta", false, "print metadata only")
	return cmd
}
