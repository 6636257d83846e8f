package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eRom/health-sub001/sdk"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
	Long: `Admin commands for user accounts. Requires an ADMIN session.

Examples:
  rehabctl users list
  rehabctl users list --search dupont --page 2
  rehabctl users role 4f8c... HEALTHCARE_PROVIDER
  rehabctl users delete 4f8c...`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUsersList,
}

var usersRoleCmd = &cobra.Command{
	Use:       "role <id> <role>",
	Short:     "Change the role of a user",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(sdk.RoleUser), string(sdk.RoleHealthcareProvider), string(sdk.RoleAdmin)},
	RunE:      runUsersRole,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a user and all their data",
	Long: `Permanently delete a user with their sessions, subscription, consent
history, associations and messages. This action cannot be undone.

You cannot delete your own account.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersDelete,
}

func init() {
	usersListCmd.Flags().Int("page", 1, "page number")
	usersListCmd.Flags().Int("per-page", 20, "users per page")
	usersListCmd.Flags().String("search", "", "filter by name or email")

	usersDeleteCmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersRoleCmd)
	usersCmd.AddCommand(usersDeleteCmd)

	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	page, _ := cmd.Flags().GetInt("page")
	perPage, _ := cmd.Flags().GetInt("per-page")
	search, _ := cmd.Flags().GetString("search")

	list, err := client.Admin.ListUsers(context.Background(), &sdk.ListUsersOptions{
		Page:    page,
		PerPage: perPage,
		Search:  search,
	})
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"users": list.Users,
			"meta":  list.Meta,
		})
	}

	if len(list.Users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	w := newTable()
	printTableHeader(w, "ID", "EMAIL", "NAME", "ROLE", "CONSENT", "CREATED")
	for _, u := range list.Users {
		consent := "no"
		if u.ConsentGrantedAt != nil {
			consent = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncate(u.ID, 8),
			u.Email,
			u.Name,
			u.Role,
			consent,
			u.CreatedAt.Format("2006-01-02"),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\nPage %d/%d (%d users)\n", list.Meta.Page, list.Meta.TotalPages, list.Meta.Total)
	return nil
}

func runUsersRole(cmd *cobra.Command, args []string) error {
	role := sdk.Role(strings.ToUpper(args[1]))
	switch role {
	case sdk.RoleUser, sdk.RoleHealthcareProvider, sdk.RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q: expected USER, HEALTHCARE_PROVIDER or ADMIN", args[1])
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	user, err := client.Admin.UpdateRole(context.Background(), args[0], role)
	if err != nil {
		printError(err)
		return err
	}

	if jsonOut {
		return printJSON(user)
	}
	fmt.Printf("%s is now %s\n", user.Email, user.Role)
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	userID := args[0]

	force, _ := cmd.Flags().GetBool("force")
	if !force {
		fmt.Printf("Delete user %s and all their data? [y/N]: ", userID)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	if err := client.Admin.DeleteUser(context.Background(), userID); err != nil {
		printError(err)
		return err
	}

	fmt.Printf("User %s deleted\n", userID)
	return nil
}
