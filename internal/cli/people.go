package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"go-substack-watch/internal/substack"
)

func newProfileCmd() *cobra.Command {
	var noRedirect, subs bool
	cmd := &cobra.Command{
		Use:   "profile <handle>",
		Short: "Show a user's public profile, following a renamed handle once.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			u := substack.NewUser(args[0], !noRedirect, a.opts)
			p, err := u.Profile(cmd.Context(), false)
			if err != nil {
				return err
			}
			if u.WasRedirected() {
				fmt.Fprintf(a.out, "@%s is now @%s\n", u.OriginalHandle(), u.Handle())
			}
			t := newTable(a.out)
			t.AppendRows([]table.Row{
				{"ID", p.ID},
				{"Name", p.Name},
				{"Handle", p.Handle},
				{"Bio", clip(p.Bio, 80)},
			})
			t.Render()
			if !subs {
				return nil
			}

			list, err := u.Subscriptions(cmd.Context())
			if err != nil {
				return err
			}
			st := newTable(a.out)
			st.AppendHeader(table.Row{"Publication", "Domain", "Membership"})
			for _, s := range list {
				st.AppendRow(table.Row{clip(s.Name, 50), s.Domain, s.MembershipState})
			}
			st.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRedirect, "no-redirect", false, "do not look for a renamed handle on 404")
	cmd.Flags().BoolVar(&subs, "subscriptions", false, "also list subscriptions")
	return cmd
}
