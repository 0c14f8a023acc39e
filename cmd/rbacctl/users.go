package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/asakaida/rolegate/pkg/rbac"
	"github.com/spf13/cobra"
)

func newUsersCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}

	var name, email, roleID, status string

	list := &cobra.Command{
		Use:   "list",
		Short: "List users in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users := c.engine.ListUsers()
			if roleID != "" {
				users = c.engine.ListUsersByRole(roleID)
			}
			printUsers(cmd, c.engine, users)
			return nil
		},
	}
	list.Flags().StringVar(&roleID, "role", "", "Only users assigned to this role id")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.engine.CreateUser(rbac.UserInput{
				Name:   name,
				Email:  email,
				RoleID: roleID,
				Status: rbac.Status(status),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&email, "email", "", "Email address")
	create.Flags().StringVar(&roleID, "role", "", "Role id")
	create.Flags().StringVar(&status, "status", string(rbac.StatusActive), "Active or Inactive")

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch rbac.UserPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("role") {
				patch.RoleID = &roleID
			}
			if flags.Changed("status") {
				s := rbac.Status(status)
				patch.Status = &s
			}
			user, err := c.engine.UpdateUser(args[0], patch)
			if err != nil {
				return err
			}
			printUsers(cmd, c.engine, []*rbac.User{user})
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "Display name")
	update.Flags().StringVar(&email, "email", "", "Email address")
	update.Flags().StringVar(&roleID, "role", "", "Role id")
	update.Flags().StringVar(&status, "status", "", "Active or Inactive")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.engine.DeleteUser(args[0])
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func printUsers(cmd *cobra.Command, e *rbac.Engine, users []*rbac.User) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS")
	for _, u := range users {
		role := u.RoleID
		if r, ok := e.GetRole(u.RoleID); ok {
			role = r.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, role, u.Status)
	}
	w.Flush()
}
