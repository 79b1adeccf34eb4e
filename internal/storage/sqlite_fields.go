package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/slatehq/slate/internal/models"
)

type sqliteFieldRepo struct {
	db *sql.DB
}

const fieldColumns = `id, name, key, type, required, display_order, options_json, default_json, validation_json, active, description, created_at, updated_at`

func (r *sqliteFieldRepo) Create(ctx context.Context, def *models.FieldDefinition) error {
	options, defaultVal, validation, err := encodeFieldJSON(def)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO field_definitions (` + fieldColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		def.ID, def.Name, def.Key, def.Type, boolToInt(def.Required), def.Order,
		options, defaultVal, validation, boolToInt(def.Active), def.Description,
		def.CreatedAt, def.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert field definition: %w", err)
	}
	return nil
}

func (r *sqliteFieldRepo) GetByID(ctx context.Context, id string) (*models.FieldDefinition, error) {
	return r.queryOne(ctx, `SELECT `+fieldColumns+` FROM field_definitions WHERE id = ?`, id)
}

func (r *sqliteFieldRepo) GetByKey(ctx context.Context, key string) (*models.FieldDefinition, error) {
	return r.queryOne(ctx, `SELECT `+fieldColumns+` FROM field_definitions WHERE key = ?`, key)
}

func (r *sqliteFieldRepo) queryOne(ctx context.Context, query string, arg any) (*models.FieldDefinition, error) {
	row := r.db.QueryRowContext(ctx, query, arg)
	def, err := scanFieldDefinition(row.Scan)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get field definition: %w", err)
	}
	return def, nil
}

func (r *sqliteFieldRepo) Update(ctx context.Context, def *models.FieldDefinition) error {
	options, defaultVal, validation, err := encodeFieldJSON(def)
	if err != nil {
		return err
	}

	query := `
		UPDATE field_definitions
		SET name = ?, key = ?, type = ?, required = ?, display_order = ?,
		    options_json = ?, default_json = ?, validation_json = ?,
		    active = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		def.Name, def.Key, def.Type, boolToInt(def.Required), def.Order,
		options, defaultVal, validation, boolToInt(def.Active), def.Description,
		def.UpdatedAt, def.ID,
	)
	if err != nil {
		return fmt.Errorf("update field definition: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("field definition not found: %s", def.ID)
	}
	return nil
}

// Delete removes the definition. Stored project values referencing it are
// removed by the foreign key cascade.
func (r *sqliteFieldRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM field_definitions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete field definition: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("field definition not found: %s", id)
	}
	return nil
}

func (r *sqliteFieldRepo) List(ctx context.Context) ([]*models.FieldDefinition, error) {
	return r.queryAll(ctx, `SELECT `+fieldColumns+` FROM field_definitions ORDER BY display_order, key`)
}

func (r *sqliteFieldRepo) ListActive(ctx context.Context) ([]*models.FieldDefinition, error) {
	return r.queryAll(ctx, `SELECT `+fieldColumns+` FROM field_definitions WHERE active = 1 ORDER BY display_order, key`)
}

func (r *sqliteFieldRepo) queryAll(ctx context.Context, query string) ([]*models.FieldDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list field definitions: %w", err)
	}
	defer rows.Close()

	var defs []*models.FieldDefinition
	for rows.Next() {
		def, err := scanFieldDefinition(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan field definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func scanFieldDefinition(scan func(...any) error) (*models.FieldDefinition, error) {
	def := &models.FieldDefinition{}
	var required, active int
	var options, defaultVal, validation, description sql.NullString

	err := scan(
		&def.ID, &def.Name, &def.Key, &def.Type, &required, &def.Order,
		&options, &defaultVal, &validation, &active, &description,
		&def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.Required = required != 0
	def.Active = active != 0
	def.Description = description.String

	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &def.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if defaultVal.Valid && defaultVal.String != "" {
		if err := json.Unmarshal([]byte(defaultVal.String), &def.DefaultValue); err != nil {
			return nil, fmt.Errorf("decode default value: %w", err)
		}
	}
	if validation.Valid && validation.String != "" {
		if err := json.Unmarshal([]byte(validation.String), &def.Validation); err != nil {
			return nil, fmt.Errorf("decode validation: %w", err)
		}
	}
	return def, nil
}

func encodeFieldJSON(def *models.FieldDefinition) (options, defaultVal, validation string, err error) {
	if len(def.Options) > 0 {
		b, err := json.Marshal(def.Options)
		if err != nil {
			return "", "", "", fmt.Errorf("encode options: %w", err)
		}
		options = string(b)
	}
	if def.DefaultValue != nil {
		b, err := json.Marshal(def.DefaultValue)
		if err != nil {
			return "", "", "", fmt.Errorf("encode default value: %w", err)
		}
		defaultVal = string(b)
	}
	b, err := json.Marshal(def.Validation)
	if err != nil {
		return "", "", "", fmt.Errorf("encode validation: %w", err)
	}
	validation = string(b)
	return options, defaultVal, validation, nil
}
