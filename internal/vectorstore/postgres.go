package vectorstore

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/relaya-ai/relaya/internal/domain"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresIndex is a pgvector-backed Index. Records live in the
// vector_records table keyed by (namespace, id); similarity is cosine.
type PostgresIndex struct {
	db dbtx
}

func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{db: pool}
}

func (p *PostgresIndex) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	now := time.Now().UTC()
	for _, r := range records {
		_, err := p.db.Exec(ctx,
			`INSERT INTO vector_records
				(namespace, id, embedding, knowledge_item_id, content, source, chunk_index, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (namespace, id) DO UPDATE SET
				embedding = EXCLUDED.embedding,
				knowledge_item_id = EXCLUDED.knowledge_item_id,
				content = EXCLUDED.content,
				source = EXCLUDED.source,
				chunk_index = EXCLUDED.chunk_index`,
			namespace,
			r.ID,
			pgvector.NewVector(r.Embedding),
			r.Metadata.KnowledgeItemID,
			r.Metadata.Content,
			r.Metadata.Source,
			r.Metadata.ChunkIndex,
			now,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.QueryResult, error) {
	rows, err := p.db.Query(ctx,
		`SELECT content, source, 1 - (embedding <=> $2) AS score
		 FROM vector_records
		 WHERE namespace = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		namespace, pgvector.NewVector(vector), topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.QueryResult, 0, topK)
	for rows.Next() {
		var r domain.QueryResult
		if err := rows.Scan(&r.Text, &r.Source, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (p *PostgresIndex) ListIDs(ctx context.Context, namespace, prefix, afterID string, limit int) ([]string, error) {
	rows, err := p.db.Query(ctx,
		`SELECT id FROM vector_records
		 WHERE namespace = $1 AND id LIKE $2 AND id > $3
		 ORDER BY id
		 LIMIT $4`,
		namespace, escapeLike(prefix)+"%", afterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresIndex) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	_, err := p.db.Exec(ctx,
		`DELETE FROM vector_records WHERE namespace = $1 AND id = ANY($2)`,
		namespace, ids,
	)
	return err
}

func (p *PostgresIndex) DeleteNamespace(ctx context.Context, namespace string) error {
	_, err := p.db.Exec(ctx,
		`DELETE FROM vector_records WHERE namespace = $1`,
		namespace,
	)
	return err
}

func (p *PostgresIndex) Count(ctx context.Context, namespace string) (int64, error) {
	var count int64
	err := p.db.QueryRow(ctx,
		`SELECT count(*) FROM vector_records WHERE namespace = $1`,
		namespace,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// escapeLike neutralizes LIKE metacharacters so a prefix match stays literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
