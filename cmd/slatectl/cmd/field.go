package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	fieldsapi "github.com/slatehq/slate/internal/api/fields"
	"github.com/slatehq/slate/internal/models"
)

var (
	fieldDBPath   string
	fieldName     string
	fieldID       string
	fieldType     string
	fieldRequired bool
	fieldOptions  []string
	fieldDesc     string
	fieldForce    bool
)

// fieldCmd represents the field command group
var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Custom field definition commands",
	Long: `Commands for managing Slate custom field definitions.

Field definitions describe the custom attributes projects can carry.
Stored project values are validated against these definitions.

Examples:
  # List all field definitions
  slatectl field list

  # Create a required select field
  slatectl field create --name Priority --type select --required --option low --option medium --option high

  # Retire a field without losing stored values
  slatectl field deactivate --id <field-id>`,
}

// fieldListCmd lists all field definitions
var fieldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all field definitions",
	Long: `List all field definitions, including inactive ones.

Example:
  slatectl field list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(fieldDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		defs, err := store.Fields().List(ctx)
		if err != nil {
			return fmt.Errorf("list fields: %w", err)
		}

		if len(defs) == 0 {
			fmt.Println("No field definitions found.")
			return nil
		}

		// Print header
		fmt.Printf("\n%-36s  %-20s  %-12s  %-8s  %-8s  %s\n",
			"ID", "KEY", "TYPE", "REQUIRED", "ACTIVE", "CREATED")
		fmt.Println(strings.Repeat("-", 110))

		for _, d := range defs {
			fmt.Printf("%-36s  %-20s  %-12s  %-8t  %-8t  %s\n",
				d.ID,
				truncate(d.Key, 20),
				d.Type,
				d.Required,
				d.Active,
				d.CreatedAt.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d definition(s)\n", len(defs))

		return nil
	},
}

// fieldCreateCmd creates a new field definition
var fieldCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new field definition",
	Long: `Create a new field definition.

Field types: text, textarea, number, boolean, date, select, multiselect.
Select and multiselect fields take their allowed values via repeated
--option flags. The field key is derived from the name and must be
unique across the registry.

Examples:
  slatectl field create --name Budget --type number
  slatectl field create --name Priority --type select --required --option low --option high`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fieldsapi.ValidateName(fieldName); err != nil {
			return fmt.Errorf("invalid name: %w", err)
		}
		parsedType, err := fieldsapi.ValidateType(fieldType)
		if err != nil {
			return fmt.Errorf("invalid type: %w", err)
		}
		if err := fieldsapi.ValidateOptions(parsedType, fieldOptions); err != nil {
			return fmt.Errorf("invalid options: %w", err)
		}

		store, err := openDatabase(fieldDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		def := models.NewFieldDefinition(strings.TrimSpace(fieldName), parsedType)
		def.ID = uuid.New().String()
		def.Required = fieldRequired
		def.Options = fieldOptions
		def.Description = strings.TrimSpace(fieldDesc)

		// Keys are unique across the registry.
		existing, err := store.Fields().GetByKey(ctx, def.Key)
		if err != nil {
			return fmt.Errorf("check key: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("a field with key '%s' already exists", def.Key)
		}

		if err := store.Fields().Create(ctx, def); err != nil {
			return fmt.Errorf("create field: %w", err)
		}

		fmt.Printf("\nField definition created:\n")
		fmt.Printf("  ID:   %s\n", def.ID)
		fmt.Printf("  Name: %s\n", def.Name)
		fmt.Printf("  Key:  %s\n", def.Key)
		fmt.Printf("  Type: %s\n", def.Type)

		return nil
	},
}

// fieldDeactivateCmd deactivates a field definition
var fieldDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate a field definition",
	Long: `Deactivate a field definition.

Inactive fields keep their stored values but stop being required and no
longer appear in active listings.

Example:
  slatectl field deactivate --id <field-id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(fieldDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		def, err := store.Fields().GetByID(ctx, fieldID)
		if err != nil {
			return fmt.Errorf("get field: %w", err)
		}
		if def == nil {
			return fmt.Errorf("field definition not found: %s", fieldID)
		}

		def.Active = false
		def.UpdatedAt = time.Now()

		if err := store.Fields().Update(ctx, def); err != nil {
			return fmt.Errorf("update field: %w", err)
		}

		fmt.Printf("Field definition deactivated: %s\n", def.Key)
		return nil
	},
}

// fieldDeleteCmd deletes a field definition
var fieldDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a field definition",
	Long: `Delete a field definition.

Stored project values for the field are removed with it. Prefer
'deactivate' when the values should be kept.

Example:
  slatectl field delete --id <field-id> --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(fieldDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		def, err := store.Fields().GetByID(ctx, fieldID)
		if err != nil {
			return fmt.Errorf("get field: %w", err)
		}
		if def == nil {
			return fmt.Errorf("field definition not found: %s", fieldID)
		}

		if !fieldForce {
			fmt.Printf("Delete field '%s' and all stored values? [y/N]: ", def.Key)
			var confirm string
			fmt.Scanln(&confirm)
			if !strings.EqualFold(confirm, "y") {
				fmt.Println("Canceled.")
				return nil
			}
		}

		if err := store.Fields().Delete(ctx, def.ID); err != nil {
			return fmt.Errorf("delete field: %w", err)
		}

		fmt.Printf("Field definition deleted: %s\n", def.Key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldCmd)
	fieldCmd.AddCommand(fieldListCmd)
	fieldCmd.AddCommand(fieldCreateCmd)
	fieldCmd.AddCommand(fieldDeactivateCmd)
	fieldCmd.AddCommand(fieldDeleteCmd)

	allCmds := []*cobra.Command{fieldListCmd, fieldCreateCmd, fieldDeactivateCmd, fieldDeleteCmd}
	for _, cmd := range allCmds {
		cmd.Flags().StringVar(&fieldDBPath, "db", defaultDBPath, "path to SQLite database file")
	}

	// Create flags
	fieldCreateCmd.Flags().StringVar(&fieldName, "name", "", "field name (required)")
	fieldCreateCmd.Flags().StringVar(&fieldType, "type", "", "field type (required)")
	fieldCreateCmd.Flags().BoolVar(&fieldRequired, "required", false, "mark the field as required")
	fieldCreateCmd.Flags().StringArrayVar(&fieldOptions, "option", nil, "allowed option (repeatable, select/multiselect only)")
	fieldCreateCmd.Flags().StringVar(&fieldDesc, "description", "", "field description")
	fieldCreateCmd.MarkFlagRequired("name")
	fieldCreateCmd.MarkFlagRequired("type")

	// Deactivate flags
	fieldDeactivateCmd.Flags().StringVar(&fieldID, "id", "", "field ID (required)")
	fieldDeactivateCmd.MarkFlagRequired("id")

	// Delete flags
	fieldDeleteCmd.Flags().StringVar(&fieldID, "id", "", "field ID (required)")
	fieldDeleteCmd.Flags().BoolVar(&fieldForce, "force", false, "skip confirmation prompt")
	fieldDeleteCmd.MarkFlagRequired("id")
}
