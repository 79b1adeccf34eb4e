package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/slatehq/slate/internal/models"
)

type sqliteProjectRepo struct {
	db *sql.DB
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, name, description, owner_id, visibility, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.Name, project.Description, project.OwnerID,
		project.Visibility, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) GetByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, description, owner_id, visibility, created_at, updated_at
		FROM projects WHERE id = ?
	`
	project := &models.Project{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.Name, &description, &project.OwnerID,
		&project.Visibility, &project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	project.Description = description.String

	if err := r.loadGrants(ctx, project); err != nil {
		return nil, err
	}
	if err := r.loadFieldValues(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// loadGrants attaches the project's direct and group grant lists, ordered
// by grant time.
func (r *sqliteProjectRepo) loadGrants(ctx context.Context, project *models.Project) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, email, role, granted_at, granted_by
		FROM project_permissions WHERE project_id = ?
		ORDER BY granted_at, user_id
	`, project.ID)
	if err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.UserID, &p.Email, &p.Role, &p.GrantedAt, &p.GrantedBy); err != nil {
			return fmt.Errorf("scan permission: %w", err)
		}
		project.Permissions = append(project.Permissions, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	grows, err := r.db.QueryContext(ctx, `
		SELECT group_id, role, granted_at, granted_by
		FROM project_group_permissions WHERE project_id = ?
		ORDER BY granted_at, group_id
	`, project.ID)
	if err != nil {
		return fmt.Errorf("load group permissions: %w", err)
	}
	defer grows.Close()

	for grows.Next() {
		var p models.GroupPermission
		if err := grows.Scan(&p.GroupID, &p.Role, &p.GrantedAt, &p.GrantedBy); err != nil {
			return fmt.Errorf("scan group permission: %w", err)
		}
		project.GroupPermissions = append(project.GroupPermissions, p)
	}
	return grows.Err()
}

func (r *sqliteProjectRepo) loadFieldValues(ctx context.Context, project *models.Project) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT field_id, value_json
		FROM project_field_values WHERE project_id = ?
		ORDER BY field_id
	`, project.ID)
	if err != nil {
		return fmt.Errorf("load field values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fieldID string
		var raw sql.NullString
		if err := rows.Scan(&fieldID, &raw); err != nil {
			return fmt.Errorf("scan field value: %w", err)
		}
		fv := models.FieldValue{FieldID: fieldID}
		if raw.Valid && raw.String != "" {
			if err := json.Unmarshal([]byte(raw.String), &fv.Value); err != nil {
				return fmt.Errorf("decode field value %s: %w", fieldID, err)
			}
		}
		project.Fields = append(project.Fields, fv)
	}
	return rows.Err()
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name, project.Description, project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

func (r *sqliteProjectRepo) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, owner_id, visibility, created_at, updated_at
		FROM projects ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		var description sql.NullString
		err := rows.Scan(
			&project.ID, &project.Name, &description, &project.OwnerID,
			&project.Visibility, &project.CreatedAt, &project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		project.Description = description.String
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *sqliteProjectRepo) ListAccessible(ctx context.Context, userID string) ([]*models.Project, error) {
	query := `
		SELECT DISTINCT p.id, p.name, p.description, p.owner_id, p.visibility, p.created_at, p.updated_at
		FROM projects p
		LEFT JOIN project_permissions pp ON p.id = pp.project_id AND pp.user_id = ?
		LEFT JOIN project_group_permissions pgp ON p.id = pgp.project_id
		LEFT JOIN groups g ON pgp.group_id = g.id
		LEFT JOIN group_members gm ON g.id = gm.group_id AND gm.user_id = ?
		WHERE p.owner_id = ?
		   OR p.visibility = 'public'
		   OR pp.user_id IS NOT NULL
		   OR gm.user_id IS NOT NULL
		   OR g.owner_id = ?
		ORDER BY p.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list accessible projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		var description sql.NullString
		err := rows.Scan(
			&project.ID, &project.Name, &description, &project.OwnerID,
			&project.Visibility, &project.CreatedAt, &project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		project.Description = description.String
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpsertPermission inserts or updates a single direct grant. The original
// granted_at and granted_by survive an update; only role and the
// denormalized email are refreshed.
func (r *sqliteProjectRepo) UpsertPermission(ctx context.Context, projectID string, perm *models.Permission) error {
	query := `
		INSERT INTO project_permissions (project_id, user_id, email, role, granted_at, granted_by)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (project_id, user_id)
		DO UPDATE SET role = excluded.role, email = excluded.email
	`
	_, err := r.db.ExecContext(ctx, query,
		projectID, perm.UserID, perm.Email, perm.Role, perm.GrantedAt, perm.GrantedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) RemovePermission(ctx context.Context, projectID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM project_permissions WHERE project_id = ? AND user_id = ?",
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove permission: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("permission not found")
	}
	return nil
}

func (r *sqliteProjectRepo) UpsertGroupPermission(ctx context.Context, projectID string, perm *models.GroupPermission) error {
	query := `
		INSERT INTO project_group_permissions (project_id, group_id, role, granted_at, granted_by)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id, group_id)
		DO UPDATE SET role = excluded.role
	`
	_, err := r.db.ExecContext(ctx, query,
		projectID, perm.GroupID, perm.Role, perm.GrantedAt, perm.GrantedBy,
	)
	if err != nil {
		return fmt.Errorf("upsert group permission: %w", err)
	}
	return nil
}

func (r *sqliteProjectRepo) RemoveGroupPermission(ctx context.Context, projectID, groupID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM project_group_permissions WHERE project_id = ? AND group_id = ?",
		projectID, groupID,
	)
	if err != nil {
		return fmt.Errorf("remove group permission: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group permission not found")
	}
	return nil
}

func (r *sqliteProjectRepo) SetVisibility(ctx context.Context, projectID string, visibility models.Visibility) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE projects SET visibility = ? WHERE id = ?",
		visibility, projectID,
	)
	if err != nil {
		return fmt.Errorf("set visibility: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// SetFieldValues upserts the supplied values in a single transaction.
// Values are stored as JSON and read back without coercion.
func (r *sqliteProjectRepo) SetFieldValues(ctx context.Context, projectID string, values []models.FieldValue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin field values: %w", err)
	}
	defer tx.Rollback()

	for _, fv := range values {
		raw, err := json.Marshal(fv.Value)
		if err != nil {
			return fmt.Errorf("encode field value %s: %w", fv.FieldID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO project_field_values (project_id, field_id, value_json)
			VALUES (?, ?, ?)
			ON CONFLICT (project_id, field_id)
			DO UPDATE SET value_json = excluded.value_json
		`, projectID, fv.FieldID, string(raw))
		if err != nil {
			return fmt.Errorf("upsert field value %s: %w", fv.FieldID, err)
		}
	}

	return tx.Commit()
}
