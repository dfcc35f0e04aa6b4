package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/pagination"
	"github.com/relaya-ai/relaya/internal/service"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type KnowledgeItemRepository struct {
	db dbtx
}

func NewKnowledgeItemRepository(pool *pgxpool.Pool) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: pool}
}

func NewKnowledgeItemRepositoryWithTx(tx pgx.Tx) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: tx}
}

func (r *KnowledgeItemRepository) Create(ctx context.Context, item *domain.KnowledgeItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_items (id, agent_id, file_name, mime_type, size_bytes, file_path, status, chunk_count, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID, item.AgentID, item.FileName, item.MimeType, item.SizeBytes, item.FilePath,
		item.Status, item.ChunkCount, nullableString(item.ErrorMessage), item.CreatedAt, item.UpdatedAt,
	)
	return err
}

func (r *KnowledgeItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	var item domain.KnowledgeItem
	var errMsg pgtype.Text
	err := r.db.QueryRow(ctx,
		`SELECT id, agent_id, file_name, mime_type, size_bytes, file_path, status, chunk_count, error_message, created_at, updated_at
		 FROM knowledge_items WHERE id = $1`,
		id,
	).Scan(&item.ID, &item.AgentID, &item.FileName, &item.MimeType, &item.SizeBytes, &item.FilePath,
		&item.Status, &item.ChunkCount, &errMsg, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeItemNotFound
		}
		return nil, err
	}
	if errMsg.Valid {
		item.ErrorMessage = errMsg.String
	}
	return &item, nil
}

func (r *KnowledgeItemRepository) ListByAgent(ctx context.Context, agentID string, cursor *pagination.Cursor, limit int) (*service.KnowledgeItemPage, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, agent_id, file_name, mime_type, size_bytes, file_path, status, chunk_count, error_message, created_at, updated_at
			 FROM knowledge_items
			 WHERE agent_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			agentID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, agent_id, file_name, mime_type, size_bytes, file_path, status, chunk_count, error_message, created_at, updated_at
			 FROM knowledge_items
			 WHERE agent_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			agentID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeItemRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt)
	}

	return &service.KnowledgeItemPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// SetStatus records a lifecycle transition. The optional chunk count and error
// message travel with the transition so the row never shows a completed status
// without its chunk count or a failed status without its message.
func (r *KnowledgeItemRepository) SetStatus(ctx context.Context, id string, status domain.ProcessingStatus, update domain.StatusUpdate) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items
		 SET status = $1,
		     chunk_count = COALESCE($2, chunk_count),
		     error_message = $3,
		     updated_at = $4
		 WHERE id = $5`,
		status, update.ChunkCount, update.ErrorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeItemNotFound
	}
	return nil
}

// ClaimPending atomically flips up to limit pending items to processing and
// returns them. SKIP LOCKED keeps concurrent workers from claiming the same
// rows.
func (r *KnowledgeItemRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.KnowledgeItem, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM knowledge_items
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE knowledge_items
		 SET status = $3,
		     error_message = NULL,
		     updated_at = $4
		 FROM cte
		 WHERE knowledge_items.id = cte.id
		 RETURNING knowledge_items.id, knowledge_items.agent_id, knowledge_items.file_name, knowledge_items.mime_type,
		           knowledge_items.size_bytes, knowledge_items.file_path, knowledge_items.status, knowledge_items.chunk_count,
		           knowledge_items.error_message, knowledge_items.created_at, knowledge_items.updated_at`,
		domain.ProcessingStatusPending, limit, domain.ProcessingStatusProcessing, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanKnowledgeItemRows(rows)
}

func (r *KnowledgeItemRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_items WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeItemNotFound
	}
	return nil
}

func (r *KnowledgeItemRepository) DeleteByAgent(ctx context.Context, agentID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_items WHERE agent_id = $1`,
		agentID,
	)
	return err
}

func (r *KnowledgeItemRepository) CountByStatus(ctx context.Context, agentID string, status domain.ProcessingStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM knowledge_items WHERE agent_id = $1 AND status = $2`,
		agentID, status,
	).Scan(&count)
	return count, err
}

func scanKnowledgeItemRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var results []*domain.KnowledgeItem
	for rows.Next() {
		var item domain.KnowledgeItem
		var errMsg pgtype.Text
		if err := rows.Scan(&item.ID, &item.AgentID, &item.FileName, &item.MimeType, &item.SizeBytes, &item.FilePath,
			&item.Status, &item.ChunkCount, &errMsg, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if errMsg.Valid {
			item.ErrorMessage = errMsg.String
		}
		results = append(results, &item)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
