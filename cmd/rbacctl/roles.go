package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/spf13/cobra"
)

func newRolesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles",
	}

	var (
		name  string
		perms []string
	)

	list := &cobra.Command{
		Use:   "list",
		Short: "List roles in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printRoles(cmd, c.engine.ListRoles())
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a role",
		Long:  `Create a role. Resources not named with --perm get level none.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePermissions(perms)
			if err != nil {
				return err
			}
			role, err := c.engine.CreateRole(args[0], p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), role.ID)
			return nil
		},
	}
	create.Flags().StringArrayVarP(&perms, "perm", "p", nil, "resource=level, repeatable")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Rename a role or change some of its levels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePermissions(perms)
			if err != nil {
				return err
			}
			patch := rbac.RolePatch{Permissions: p}
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			role, err := c.engine.UpdateRole(args[0], patch)
			if err != nil {
				return err
			}
			printRoles(cmd, []*rbac.Role{role})
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "New role name")
	update.Flags().StringArrayVarP(&perms, "perm", "p", nil, "resource=level, repeatable")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a role no user is assigned to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.engine.DeleteRole(args[0])
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

// parsePermissions reads resource=level pairs
func parsePermissions(pairs []string) (map[rbac.Resource]rbac.PermissionLevel, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[rbac.Resource]rbac.PermissionLevel, len(pairs))
	for _, pair := range pairs {
		res, lvl, ok := strings.Cut(pair, "=")
		if !ok || res == "" || lvl == "" {
			return nil, fmt.Errorf("invalid permission %q (want resource=level)", pair)
		}
		out[rbac.Resource(res)] = rbac.PermissionLevel(lvl)
	}
	return out, nil
}

func printRoles(cmd *cobra.Command, roles []*rbac.Role) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	header := []string{"ID", "NAME"}
	for _, r := range rbac.Resources() {
		header = append(header, strings.ToUpper(string(r)))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, role := range roles {
		row := []string{role.ID, role.Name}
		for _, r := range rbac.Resources() {
			row = append(row, string(role.Level(r)))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}
