// Package admincmder provides the admin command for managing users and
// reading the activity log on a running inkwell API server.
package admincmder

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/inkwellhq/inkwell/api"
	"github.com/inkwellhq/inkwell/cmd/inkwell/clientflags"
	"github.com/inkwellhq/inkwell/pkg/auth"
	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/cliui"
)

const adminLongDesc string = `Manage users and read the activity log.

Admin commands require an admin token. The first admin is created when the
server starts against empty storage; its token is printed in the server log.

Examples:
  inkwell admin users list
  inkwell admin users create --email writer@example.com --name Writer
  inkwell admin activity --user 3f2a... --limit 20`

func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users and read the activity log",
		Long:  adminLongDesc,
	}

	users := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	users.AddCommand(newUsersListCmd())
	users.AddCommand(newUsersCreateCmd())

	cmd.AddCommand(users)
	cmd.AddCommand(newActivityCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	f := &clientflags.Flags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return f.Load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := f.Client(f.Logger())
			if err != nil {
				return err
			}
			defer done()

			users, err := client.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.JSON {
				return writeJSON(out, users)
			}
			if len(users) == 0 {
				fmt.Fprintf(out, "  %s No users.\n", cliui.DimStyle.Render("●"))
				return nil
			}
			for _, u := range users {
				printUser(out, &u)
			}
			return nil
		},
	}
	f.Register(cmd, false)
	return cmd
}

func newUsersCreateCmd() *cobra.Command {
	f := &clientflags.Flags{}
	var (
		email string
		name  string
		admin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print its token",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return f.Load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := f.Client(f.Logger())
			if err != nil {
				return err
			}
			defer done()

			role := auth.RoleUser
			if admin {
				role = auth.RoleAdmin
			}
			u, err := client.CreateUser(cmd.Context(), api.CreateUserRequest{Email: email, Name: name, Role: role})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.JSON {
				return writeJSON(out, u)
			}
			printUser(out, u)
			fmt.Fprintf(out, "    %s %s\n", cliui.KeyStyle.Render("token:"), cliui.ValueStyle.Render(u.Token))
			return nil
		},
	}
	f.Register(cmd, false)
	cmd.Flags().StringVar(&email, "email", "", "Email address of the new user")
	cmd.Flags().StringVar(&name, "name", "", "Display name of the new user")
	cmd.Flags().BoolVar(&admin, "admin", false, "Give the user the admin role")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newActivityCmd() *cobra.Command {
	f := &clientflags.Flags{}
	var (
		userID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent activity, newest first",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return f.Load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, done, err := f.Client(f.Logger())
			if err != nil {
				return err
			}
			defer done()

			entries, err := client.ListActivity(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f.JSON {
				return writeJSON(out, entries)
			}
			for _, e := range entries {
				printActivity(out, &e)
			}
			return nil
		},
	}
	f.Register(cmd, false)
	cmd.Flags().StringVar(&userID, "user", "", "Only show activity by this user ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries")
	return cmd
}

func printUser(w io.Writer, u *catalog.User) {
	fmt.Fprintf(w, "  %s %s %s %s\n",
		cliui.NameStyle.Render(u.Email),
		cliui.DimStyle.Render(u.ID),
		cliui.ValueStyle.Render(string(u.Role)),
		cliui.DimStyle.Render(strconv.Quote(u.Name)),
	)
}

func printActivity(w io.Writer, e *catalog.ActivityLog) {
	target := e.EntityType
	if e.EntityID != "" {
		target += ":" + e.EntityID
	}
	fmt.Fprintf(w, "  %s %s %s %s %s\n",
		cliui.DimStyle.Render(e.CreatedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.NameStyle.Render(e.UserID),
		cliui.KeyStyle.Render(e.Action),
		cliui.ValueStyle.Render(target),
		cliui.DimStyle.Render(e.Detail),
	)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
