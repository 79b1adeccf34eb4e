package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/slatehq/slate/internal/models"
	"github.com/slatehq/slate/internal/storage"
)

var (
	groupDBPath     string
	groupName       string
	groupID         string
	groupDesc       string
	groupOwnerEmail string
	groupUserEmail  string
	groupForce      bool
)

// groupCmd represents the group command group
var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Group management commands",
	Long: `Commands for managing Slate user groups.

Groups collect users so projects can be shared with all of them at once.
The group owner has implicit membership and is never listed in the roster.

Examples:
  # Create a group
  slatectl group create --name platform --owner jane@example.com

  # Show a group and its members
  slatectl group show --id <group-id>

  # Add a member
  slatectl group add-member --id <group-id> --email bob@example.com`,
}

// groupCreateCmd creates a new group
var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new group",
	Long: `Create a new group owned by the given user.

Example:
  slatectl group create --name platform --owner jane@example.com --description "Platform team"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(groupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		owner, err := store.Users().GetByEmail(ctx, groupOwnerEmail)
		if err != nil {
			return fmt.Errorf("find owner: %w", err)
		}
		if owner == nil {
			return fmt.Errorf("owner '%s' not found", groupOwnerEmail)
		}

		group := models.NewGroup(strings.TrimSpace(groupName), strings.TrimSpace(groupDesc), owner.ID)
		group.ID = uuid.New().String()

		if err := store.Groups().Create(ctx, group); err != nil {
			return fmt.Errorf("create group: %w", err)
		}

		fmt.Printf("\nGroup created successfully:\n")
		fmt.Printf("  ID:    %s\n", group.ID)
		fmt.Printf("  Name:  %s\n", group.Name)
		fmt.Printf("  Owner: %s\n", owner.Email)

		return nil
	},
}

// groupShowCmd shows group details
var groupShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show group details and members",
	Long: `Show detailed information about a group, including its roster.

Example:
  slatectl group show --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(groupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		group, err := loadGroup(ctx, store, groupID)
		if err != nil {
			return err
		}

		fmt.Println("\nGroup Details:")
		fmt.Printf("  ID:          %s\n", group.ID)
		fmt.Printf("  Name:        %s\n", group.Name)
		fmt.Printf("  Description: %s\n", group.Description)
		fmt.Printf("  Owner:       %s\n", group.OwnerID)
		fmt.Printf("  Members:     %d\n", group.MemberCount())
		fmt.Printf("  Created:     %s\n", group.CreatedAt.Format("2006-01-02 15:04:05"))

		if len(group.Members) > 0 {
			fmt.Printf("\n  Roster:\n")
			for _, m := range group.Members {
				fmt.Printf("    %-36s  added %s\n", m.UserID, m.AddedAt.Format("2006-01-02"))
			}
		}

		return nil
	},
}

// groupDeleteCmd deletes a group
var groupDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a group",
	Long: `Delete a group from the database.

Project grants held by the group are removed with it; users who relied on
those grants lose the derived access.

Example:
  slatectl group delete --id <group-id> --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(groupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		group, err := loadGroup(ctx, store, groupID)
		if err != nil {
			return err
		}

		if !groupForce {
			fmt.Printf("Delete group '%s'? [y/N]: ", group.Name)
			var confirm string
			fmt.Scanln(&confirm)
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := store.Groups().Delete(ctx, group.ID); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}

		fmt.Printf("Group deleted: %s\n", group.Name)
		return nil
	},
}

// groupAddMemberCmd adds a user to a group
var groupAddMemberCmd = &cobra.Command{
	Use:   "add-member",
	Short: "Add a user to a group",
	Long: `Add a user to a group's roster.

The group owner has implicit membership and cannot be added.

Example:
  slatectl group add-member --id <group-id> --email bob@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(groupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		group, err := loadGroup(ctx, store, groupID)
		if err != nil {
			return err
		}

		user, err := store.Users().GetByEmail(ctx, groupUserEmail)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", groupUserEmail)
		}
		if user.ID == group.OwnerID {
			return fmt.Errorf("the owner is already an implicit member")
		}
		if group.HasMember(user.ID) {
			return fmt.Errorf("user '%s' is already a member", groupUserEmail)
		}

		member := &models.GroupMember{
			UserID:  user.ID,
			AddedAt: time.Now(),
			AddedBy: group.OwnerID,
		}
		if err := store.Groups().AddMember(ctx, group.ID, member); err != nil {
			return fmt.Errorf("add member: %w", err)
		}

		fmt.Printf("Added %s to group '%s'\n", user.Email, group.Name)
		return nil
	},
}

// groupRemoveMemberCmd removes a user from a group
var groupRemoveMemberCmd = &cobra.Command{
	Use:   "remove-member",
	Short: "Remove a user from a group",
	Long: `Remove a user from a group's roster.

Example:
  slatectl group remove-member --id <group-id> --email bob@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(groupDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		group, err := loadGroup(ctx, store, groupID)
		if err != nil {
			return err
		}

		user, err := store.Users().GetByEmail(ctx, groupUserEmail)
		if err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("user '%s' not found", groupUserEmail)
		}

		if err := store.Groups().RemoveMember(ctx, group.ID, user.ID); err != nil {
			return fmt.Errorf("remove member: %w", err)
		}

		fmt.Printf("Removed %s from group '%s'\n", user.Email, group.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupShowCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupAddMemberCmd)
	groupCmd.AddCommand(groupRemoveMemberCmd)

	allCmds := []*cobra.Command{
		groupCreateCmd, groupShowCmd, groupDeleteCmd,
		groupAddMemberCmd, groupRemoveMemberCmd,
	}
	for _, cmd := range allCmds {
		cmd.Flags().StringVar(&groupDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	// Create flags
	groupCreateCmd.Flags().StringVar(&groupName, "name", "", "group name (required)")
	groupCreateCmd.Flags().StringVar(&groupOwnerEmail, "owner", "", "owner email (required)")
	groupCreateCmd.Flags().StringVar(&groupDesc, "description", "", "group description")
	groupCreateCmd.MarkFlagRequired("name")
	groupCreateCmd.MarkFlagRequired("owner")

	// Show flags
	groupShowCmd.Flags().StringVar(&groupID, "id", "", "group ID (required)")
	groupShowCmd.MarkFlagRequired("id")

	// Delete flags
	groupDeleteCmd.Flags().StringVar(&groupID, "id", "", "group ID (required)")
	groupDeleteCmd.Flags().BoolVar(&groupForce, "force", false, "skip confirmation prompt")
	groupDeleteCmd.MarkFlagRequired("id")

	// Member flags
	for _, cmd := range []*cobra.Command{groupAddMemberCmd, groupRemoveMemberCmd} {
		cmd.Flags().StringVar(&groupID, "id", "", "group ID (required)")
		cmd.Flags().StringVar(&groupUserEmail, "email", "", "user email (required)")
		cmd.MarkFlagRequired("id")
		cmd.MarkFlagRequired("email")
	}
}

// loadGroup fetches a group by ID.
func loadGroup(ctx context.Context, store storage.Storage, id string) (*models.Group, error) {
	g, err := store.Groups().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	if g == nil {
		return nil, fmt.Errorf("group not found: %s", id)
	}
	return g, nil
}
