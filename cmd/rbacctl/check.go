package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id> <resource> <level>",
		Short: "Decide whether a user may act on a resource",
		Long: `Decide whether a user may act on a resource at a level.
Prints the decision and exits with status 2 when it is a deny.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := c.engine.Authorize(args[0], rbac.Resource(args[1]), rbac.PermissionLevel(args[2]))
			fmt.Fprintf(cmd.OutOrStdout(), "%s (holds %s)\n", d, d.Level)
			if !d.Allowed {
				return exitCode(exitDenied)
			}
			return nil
		},
	}
}

func newPermissionsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "permissions <user-id>",
		Short: "Show the level a user holds on every resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perms, reason := c.engine.EffectivePermissions(args[0])
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range rbac.Resources() {
				fmt.Fprintf(w, "%s\t%s\n", r, perms.Level(r))
			}
			w.Flush()
			if reason != rbac.ReasonGranted {
				fmt.Fprintf(cmd.OutOrStdout(), "(%s)\n", reason)
			}
			return nil
		},
	}
}

func newWhoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "who <resource> <level>",
		Short: "List the users allowed on a resource at a level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range c.engine.LookupUsers(rbac.Resource(args[0]), rbac.PermissionLevel(args[1])) {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.engine.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "roles: %d\nusers: %d\nactive users: %d\n", s.TotalRoles, s.TotalUsers, s.ActiveUsers)

			ids := make([]string, 0, len(s.UsersPerRole))
			for id := range s.UsersPerRole {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				name := id
				if r, ok := c.engine.GetRole(id); ok {
					name = r.Name
				}
				fmt.Fprintf(out, "  %s: %d\n", name, s.UsersPerRole[id])
			}
			return nil
		},
	}
}
