package groups

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByUserID(ctx context.Context, userID string) ([]models.Group, error) {
	query := `
		SELECT g.id, g.name, p.id, p.name
		FROM user_groups ug
		JOIN groups g ON g.id = ug.group_id
		LEFT JOIN group_permissions gp ON gp.group_id = g.id
		LEFT JOIN permissions p ON p.id = gp.permission_id
		WHERE ug.user_id = $1
		ORDER BY g.name, p.name
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Group
	index := map[string]int{}
	for rows.Next() {
		var (
			groupID, groupName string
			permID, permName   sql.NullString
		)
		if err := rows.Scan(&groupID, &groupName, &permID, &permName); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		i, ok := index[groupID]
		if !ok {
			i = len(result)
			index[groupID] = i
			result = append(result, models.Group{ID: groupID, Name: groupName})
		}
		if permID.Valid {
			result[i].Permissions = append(result[i].Permissions,
				models.Permission{ID: permID.String, Name: permName.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
