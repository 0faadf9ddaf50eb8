package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/knowledgehub/workflow/internal/core/domain"
	"github.com/knowledgehub/workflow/internal/infrastructure/db/memory"
)

const knowledgeColumns = `id, title, description, author, role, tags, project, region, type, status, created_at, validated_by, validated_at`

type KnowledgeRepository struct {
	db *sql.DB
}

func scanItem(row rowScanner) (*domain.KnowledgeItem, error) {
	var (
		item        domain.KnowledgeItem
		tags        string
		status      string
		createdAt   int64
		validatedAt sql.NullInt64
	)
	if err := row.Scan(
		&item.ID, &item.Title, &item.Description, &item.Author, &item.Role, &tags,
		&item.Project, &item.Region, &item.Type, &status, &createdAt,
		&item.ValidatedBy, &validatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", item.ID, err)
	}
	item.Tags = domain.CloneTags(item.Tags)
	item.Status = domain.KnowledgeStatus(status)
	item.CreatedAt = fromMillis(createdAt)
	if validatedAt.Valid {
		at := fromMillis(validatedAt.Int64)
		item.ValidatedAt = &at
	}
	return &item, nil
}

func (r *KnowledgeRepository) List(ctx context.Context, filter domain.KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_items
		 WHERE (?1 = '' OR author = ?1) AND (?2 = '' OR status = ?2)
		 ORDER BY rowid`,
		filter.Author, string(filter.Status),
	)
	if err != nil {
		return nil, backendErr("list knowledge", err)
	}
	defer rows.Close()

	items := make([]domain.KnowledgeItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, backendErr("scan knowledge", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list knowledge", err)
	}
	return items, nil
}

func (r *KnowledgeRepository) FindByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("find knowledge", err)
	}
	return item, nil
}

func (r *KnowledgeRepository) Insert(ctx context.Context, item domain.KnowledgeItem) (*domain.KnowledgeItem, error) {
	item.ID = uuid.NewString()
	item.Tags = domain.CloneTags(item.Tags)
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	var validatedAt any
	if item.ValidatedAt != nil {
		validatedAt = toMillis(*item.ValidatedAt)
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO knowledge_items (`+knowledgeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Title, item.Description, item.Author, item.Role, string(tags),
		item.Project, item.Region, item.Type, string(item.Status), toMillis(item.CreatedAt),
		item.ValidatedBy, validatedAt,
	); err != nil {
		return nil, backendErr("insert knowledge", err)
	}
	item.CreatedAt = fromMillis(toMillis(item.CreatedAt))
	return &item, nil
}

func (r *KnowledgeRepository) Update(ctx context.Context, id string, patch domain.KnowledgePatch) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	guard := 0
	if patch.OnlyIfUndecided {
		guard = 1
	}
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`UPDATE knowledge_items SET status = ?, validated_by = ?, validated_at = ?
		 WHERE id = ? AND (? = 0 OR validated_at IS NULL) RETURNING `+knowledgeColumns,
		string(patch.Status), patch.ValidatedBy, toMillis(patch.ValidatedAt), id, guard,
	))
	if errors.Is(err, sql.ErrNoRows) {
		if !patch.OnlyIfUndecided {
			return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
		}
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: knowledge item %s already decided", domain.ErrConflict, id)
	}
	if err != nil {
		return nil, backendErr("update knowledge", err)
	}
	return item, nil
}

func (r *KnowledgeRepository) Remove(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	if err := memory.CheckID(id); err != nil {
		return nil, err
	}
	item, err := scanItem(r.db.QueryRowContext(ctx,
		`DELETE FROM knowledge_items WHERE id = ? RETURNING `+knowledgeColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledge item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, backendErr("remove knowledge", err)
	}
	return item, nil
}
