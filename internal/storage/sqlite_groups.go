package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/slatehq/slate/internal/models"
)

type sqliteGroupRepo struct {
	db *sql.DB
}

func (r *sqliteGroupRepo) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (id, name, description, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		group.ID, group.Name, group.Description, group.OwnerID,
		group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (r *sqliteGroupRepo) GetByID(ctx context.Context, id string) (*models.Group, error) {
	query := `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM groups WHERE id = ?
	`
	group := &models.Group{}
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID, &group.Name, &description, &group.OwnerID,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	group.Description = description.String

	if err := r.loadMembers(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *sqliteGroupRepo) loadMembers(ctx context.Context, group *models.Group) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, added_at, added_by
		FROM group_members WHERE group_id = ?
		ORDER BY added_at, user_id
	`, group.ID)
	if err != nil {
		return fmt.Errorf("load group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.UserID, &m.AddedAt, &m.AddedBy); err != nil {
			return fmt.Errorf("scan group member: %w", err)
		}
		group.Members = append(group.Members, m)
	}
	return rows.Err()
}

func (r *sqliteGroupRepo) Update(ctx context.Context, group *models.Group) error {
	query := `
		UPDATE groups SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		group.Name, group.Description, group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group not found: %s", group.ID)
	}
	return nil
}

func (r *sqliteGroupRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group not found: %s", id)
	}
	return nil
}

func (r *sqliteGroupRepo) AddMember(ctx context.Context, groupID string, member *models.GroupMember) error {
	query := `
		INSERT INTO group_members (group_id, user_id, added_at, added_by)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		groupID, member.UserID, member.AddedAt, member.AddedBy,
	)
	if err != nil {
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

func (r *sqliteGroupRepo) RemoveMember(ctx context.Context, groupID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove group member: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user not in group")
	}
	return nil
}

func (r *sqliteGroupRepo) GroupsOwnedBy(ctx context.Context, userID string) ([]*models.Group, error) {
	return r.queryGroups(ctx, `
		SELECT id, name, description, owner_id, created_at, updated_at
		FROM groups WHERE owner_id = ?
		ORDER BY name
	`, userID)
}

func (r *sqliteGroupRepo) GroupsContaining(ctx context.Context, userID string) ([]*models.Group, error) {
	return r.queryGroups(ctx, `
		SELECT g.id, g.name, g.description, g.owner_id, g.created_at, g.updated_at
		FROM groups g
		INNER JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = ?
		ORDER BY g.name
	`, userID)
}

func (r *sqliteGroupRepo) queryGroups(ctx context.Context, query string, args ...any) ([]*models.Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group := &models.Group{}
		var description sql.NullString
		err := rows.Scan(
			&group.ID, &group.Name, &description, &group.OwnerID,
			&group.CreatedAt, &group.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		group.Description = description.String
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, g := range groups {
		if err := r.loadMembers(ctx, g); err != nil {
			return nil, err
		}
	}
	return groups, nil
}
