// Package files provides the PostgreSQL-backed repository of file and
// folder metadata.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

const fileColumns = `id, user_id, name, type, parent_id, is_public, local_path, created_at`

// PostgresRepository stores nodes over a dbx.DBTX (*sql.DB or *sql.Tx).
// Root nodes are stored with a NULL parent_id.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.File, error) {
	var (
		f         models.File
		nodeType  string
		parentID  sql.NullString
		localPath sql.NullString
	)
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &nodeType, &parentID, &f.IsPublic, &localPath, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Type = models.NodeType(nodeType)
	f.ParentID = common.RootParentID
	if parentID.Valid {
		f.ParentID = parentID.String
	}
	f.LocalPath = localPath.String
	return &f, nil
}

func nullableParent(f *models.File) sql.NullString {
	if f.IsRoot() {
		return sql.NullString{}
	}
	return sql.NullString{String: f.ParentID, Valid: true}
}

// Create inserts the node and fills in ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (user_id, name, type, parent_id, is_public, local_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	localPath := sql.NullString{String: file.LocalPath, Valid: file.LocalPath != ""}

	err := r.db.QueryRowContext(ctx, query,
		file.UserID, file.Name, string(file.Type), nullableParent(file), file.IsPublic, localPath,
	).Scan(&file.ID, &file.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if file.ParentID == "" {
		file.ParentID = common.RootParentID
	}
	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDAndUser treats ownership as part of the lookup key: a node owned by
// someone else is reported as not found.
func (r *PostgresRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userID)
}

// SetPublic flips visibility in a single statement, so concurrent toggles
// never interleave a read and a write.
func (r *PostgresRepository) SetPublic(ctx context.Context, id, userID string, isPublic bool) (*models.File, error) {
	query := `UPDATE files SET is_public = $3 WHERE id = $1 AND user_id = $2 RETURNING ` + fileColumns
	return r.getOne(ctx, query, id, userID, isPublic)
}

// ListByParent returns one page of the user's nodes under parentID, oldest
// first. common.RootParentID selects top-level nodes.
func (r *PostgresRepository) ListByParent(ctx context.Context, userID, parentID string, limit, offset int) ([]*models.File, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if parentID == "" || parentID == common.RootParentID {
		query := `SELECT ` + fileColumns + ` FROM files
			WHERE user_id = $1 AND parent_id IS NULL
			ORDER BY created_at, id LIMIT $2 OFFSET $3`
		rows, err = r.db.QueryContext(ctx, query, userID, limit, offset)
	} else {
		query := `SELECT ` + fileColumns + ` FROM files
			WHERE user_id = $1 AND parent_id = $2
			ORDER BY created_at, id LIMIT $3 OFFSET $4`
		rows, err = r.db.QueryContext(ctx, query, userID, parentID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
