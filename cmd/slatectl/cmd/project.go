package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/slatehq/slate/internal/models"
	"github.com/slatehq/slate/internal/permissions"
	"github.com/slatehq/slate/internal/storage"
)

var (
	projectDBPath     string
	projectName       string
	projectID         string
	projectDesc       string
	projectOwnerEmail string
	projectVisibility string
	projectForce      bool
	projectUserEmail  string
	projectUserID     string
	projectRole       string
)

// projectCmd represents the project command group
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project management commands",
	Long: `Commands for managing Slate projects.

These commands operate directly on the database file and bypass the
per-project permission checks the API enforces; they are intended for
system administrators.

Examples:
  # List all projects
  slatectl project list

  # Create a project owned by a user
  slatectl project create --name roadmap --owner jane@example.com

  # Make a project public
  slatectl project set-visibility --id <project-id> --visibility public

  # Grant a role on a project
  slatectl project grant --id <project-id> --email bob@example.com --role editor`,
}

// projectListCmd lists all projects
var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Long: `List all projects in the database.

Displays project ID, name, owner, visibility, and creation date.

Example:
  slatectl project list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		projects, err := store.Projects().List(ctx)
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}

		if len(projects) == 0 {
			fmt.Println("No projects found.")
			return nil
		}

		// Print header
		fmt.Printf("\n%-36s  %-24s  %-36s  %-10s  %s\n",
			"ID", "NAME", "OWNER", "VISIBILITY", "CREATED")
		fmt.Println(strings.Repeat("-", 130))

		for _, p := range projects {
			fmt.Printf("%-36s  %-24s  %-36s  %-10s  %s\n",
				p.ID,
				truncate(p.Name, 24),
				p.OwnerID,
				p.Visibility,
				p.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d project(s)\n", len(projects))

		return nil
	},
}

// projectCreateCmd creates a new project
var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new project",
	Long: `Create a new private project owned by the given user.

Example:
  slatectl project create --name roadmap --owner jane@example.com --description "Q3 roadmap"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		owner, err := store.Users().GetByEmail(ctx, projectOwnerEmail)
		if err != nil {
			return fmt.Errorf("find owner: %w", err)
		}
		if owner == nil {
			return fmt.Errorf("owner '%s' not found", projectOwnerEmail)
		}

		project := models.NewProject(strings.TrimSpace(projectName), strings.TrimSpace(projectDesc), owner.ID)
		project.ID = uuid.New().String()

		if err := store.Projects().Create(ctx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}

		fmt.Printf("\nProject created successfully:\n")
		fmt.Printf("  ID:         %s\n", project.ID)
		fmt.Printf("  Name:       %s\n", project.Name)
		fmt.Printf("  Owner:      %s\n", owner.Email)
		fmt.Printf("  Visibility: %s\n", project.Visibility)

		return nil
	},
}

// projectShowCmd shows project details
var projectShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show project details",
	Long: `Show detailed information about a project, including its grants.

Example:
  slatectl project show --id 550e8400-e29b-41d4-a716-446655440000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := loadProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		fmt.Println("\nProject Details:")
		fmt.Printf("  ID:          %s\n", project.ID)
		fmt.Printf("  Name:        %s\n", project.Name)
		fmt.Printf("  Description: %s\n", project.Description)
		fmt.Printf("  Owner:       %s\n", project.OwnerID)
		fmt.Printf("  Visibility:  %s\n", project.Visibility)
		fmt.Printf("  Created:     %s\n", project.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Updated:     %s\n", project.UpdatedAt.Format("2006-01-02 15:04:05"))

		if len(project.Permissions) > 0 {
			fmt.Printf("\n  Direct grants:\n")
			for _, p := range project.Permissions {
				fmt.Printf("    %-30s  %-7s  granted %s\n",
					p.Email, p.Role, p.GrantedAt.Format("2006-01-02"))
			}
		}
		if len(project.GroupPermissions) > 0 {
			fmt.Printf("\n  Group grants:\n")
			for _, p := range project.GroupPermissions {
				fmt.Printf("    %-36s  %-7s  granted %s\n",
					p.GroupID, p.Role, p.GrantedAt.Format("2006-01-02"))
			}
		}

		return nil
	},
}

// projectDeleteCmd deletes a project
var projectDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a project",
	Long: `Delete a project from the database.

All grants and stored field values for the project are removed with it.

Examples:
  slatectl project delete --id <project-id>
  slatectl project delete --id <project-id> --force  # skip confirmation`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := loadProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		if !projectForce {
			fmt.Printf("Delete project '%s'? [y/N]: ", project.Name)
			var confirm string
			fmt.Scanln(&confirm)
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := store.Projects().Delete(ctx, project.ID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		fmt.Printf("Project deleted: %s\n", project.Name)
		return nil
	},
}

// projectSetVisibilityCmd changes a project's visibility
var projectSetVisibilityCmd = &cobra.Command{
	Use:   "set-visibility",
	Short: "Change project visibility",
	Long: `Change a project's visibility.

Visibility values:
  - private: Only the owner and granted users or groups may view
  - team:    Same as private; intended for team-internal projects
  - public:  Any authenticated user may view (never edit)

Example:
  slatectl project set-visibility --id <project-id> --visibility public`,
	RunE: func(cmd *cobra.Command, args []string) error {
		visibility := models.Visibility(strings.ToLower(strings.TrimSpace(projectVisibility)))
		if !visibility.Valid() {
			return fmt.Errorf("invalid visibility: %s (use: private, team, public)", projectVisibility)
		}

		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := loadProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		if err := store.Projects().SetVisibility(ctx, project.ID, visibility); err != nil {
			return fmt.Errorf("set visibility: %w", err)
		}

		fmt.Printf("Project '%s' visibility set to %s\n", project.Name, visibility)
		return nil
	},
}

// projectGrantCmd grants or updates a role for a user on a project
var projectGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant or update a user's role on a project",
	Long: `Grant a role to a user on a project, acting as the project owner.

If the user already holds a grant, the role is updated in place and the
original grant metadata is preserved. The owner cannot be granted a role.

Roles:
  - viewer: Read-only access
  - editor: May modify the project and its field values
  - owner:  Full control except ownership transfer and deletion

Example:
  slatectl project grant --id <project-id> --email bob@example.com --role editor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		role, ok := models.ParseRole(strings.ToLower(strings.TrimSpace(projectRole)))
		if !ok {
			return fmt.Errorf("invalid role: %s (use: viewer, editor, owner)", projectRole)
		}

		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := loadProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		// Grants go through the same engine the API uses, acting as the owner.
		engine := permissions.NewEngine(store.Projects(), store.Users(), store.Groups())
		if _, err := engine.GrantUser(ctx, project.ID, project.OwnerID, projectUserEmail, role); err != nil {
			return fmt.Errorf("grant: %w", err)
		}

		fmt.Printf("Granted %s to %s on project '%s'\n", role, projectUserEmail, project.Name)
		return nil
	},
}

// projectRevokeCmd revokes a user's grant on a project
var projectRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a user's grant on a project",
	Long: `Remove a user's direct grant from a project, acting as the owner.

Example:
  slatectl project revoke --id <project-id> --user-id <user-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(projectDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		project, err := loadProject(ctx, store.Projects(), projectID)
		if err != nil {
			return err
		}

		engine := permissions.NewEngine(store.Projects(), store.Users(), store.Groups())
		if _, err := engine.RevokeUser(ctx, project.ID, project.OwnerID, projectUserID); err != nil {
			return fmt.Errorf("revoke: %w", err)
		}

		fmt.Printf("Revoked user %s from project '%s'\n", projectUserID, project.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectSetVisibilityCmd)
	projectCmd.AddCommand(projectGrantCmd)
	projectCmd.AddCommand(projectRevokeCmd)

	allCmds := []*cobra.Command{
		projectListCmd, projectCreateCmd, projectShowCmd,
		projectDeleteCmd, projectSetVisibilityCmd,
		projectGrantCmd, projectRevokeCmd,
	}
	for _, cmd := range allCmds {
		cmd.Flags().StringVar(&projectDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	// Create flags
	projectCreateCmd.Flags().StringVar(&projectName, "name", "", "project name (required)")
	projectCreateCmd.Flags().StringVar(&projectOwnerEmail, "owner", "", "owner email (required)")
	projectCreateCmd.Flags().StringVar(&projectDesc, "description", "", "project description")
	projectCreateCmd.MarkFlagRequired("name")
	projectCreateCmd.MarkFlagRequired("owner")

	// Show flags
	projectShowCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectShowCmd.MarkFlagRequired("id")

	// Delete flags
	projectDeleteCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectDeleteCmd.Flags().BoolVar(&projectForce, "force", false, "skip confirmation prompt")
	projectDeleteCmd.MarkFlagRequired("id")

	// Set-visibility flags
	projectSetVisibilityCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectSetVisibilityCmd.Flags().StringVar(&projectVisibility, "visibility", "", "visibility: private, team, public (required)")
	projectSetVisibilityCmd.MarkFlagRequired("id")
	projectSetVisibilityCmd.MarkFlagRequired("visibility")

	// Grant flags
	projectGrantCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectGrantCmd.Flags().StringVar(&projectUserEmail, "email", "", "email of the user to grant (required)")
	projectGrantCmd.Flags().StringVar(&projectRole, "role", "viewer", "role: viewer, editor, owner")
	projectGrantCmd.MarkFlagRequired("id")
	projectGrantCmd.MarkFlagRequired("email")

	// Revoke flags
	projectRevokeCmd.Flags().StringVar(&projectID, "id", "", "project ID (required)")
	projectRevokeCmd.Flags().StringVar(&projectUserID, "user-id", "", "ID of the user to revoke (required)")
	projectRevokeCmd.MarkFlagRequired("id")
	projectRevokeCmd.MarkFlagRequired("user-id")
}

// loadProject fetches a project by ID.
func loadProject(ctx context.Context, repo storage.ProjectRepository, id string) (*models.Project, error) {
	p, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project not found: %s", id)
	}
	return p, nil
}
