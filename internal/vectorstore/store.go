package vectorstore

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/relaya-ai/relaya/internal/domain"
	"github.com/relaya-ai/relaya/internal/pagination"
)

const (
	// UpsertBatchSize is the number of records written per network call
	UpsertBatchSize = 200
	// DeletePageSize is the listing page size used by prefix deletion
	DeletePageSize = 100
)

// Index is the raw vector index API. Every operation is scoped to exactly one
// namespace; implementations must never let a call touch records outside it.
type Index interface {
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.QueryResult, error)
	ListIDs(ctx context.Context, namespace, prefix, afterID string, limit int) ([]string, error)
	DeleteByIDs(ctx context.Context, namespace string, ids []string) error
	DeleteNamespace(ctx context.Context, namespace string) error
	Count(ctx context.Context, namespace string) (int64, error)
}

// NamespaceStats summarizes one tenant's slice of the index.
type NamespaceStats struct {
	VectorCount int64
}

// Page is one page of a prefix-restricted id listing. An empty NextPageToken
// signals the final page.
type Page struct {
	IDs           []string
	NextPageToken string
}

// Store wraps a raw Index with batching, rate-limit backoff, and pagination.
// Thresholding of query results deliberately does not happen here; the
// retrieval layer owns the relevance cutoff.
type Store struct {
	index         Index
	batchSize     int
	maxAttempts   int
	baseDelay     time.Duration
	isRateLimited RetryClassifier
}

// Option configures a Store.
type Option func(*Store)

// WithRetryClassifier overrides how rate-limit errors are recognized.
func WithRetryClassifier(classifier RetryClassifier) Option {
	return func(s *Store) { s.isRateLimited = classifier }
}

// WithBackoffBudget overrides the attempt count and base delay.
func WithBackoffBudget(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Store) {
		s.maxAttempts = maxAttempts
		s.baseDelay = baseDelay
	}
}

// WithBatchSize overrides the upsert batch size.
func WithBatchSize(size int) Option {
	return func(s *Store) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewStore creates a Store over the given index.
func NewStore(index Index, opts ...Option) *Store {
	s := &Store{
		index:       index,
		batchSize:   UpsertBatchSize,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		isRateLimited: func(err error) bool {
			return errors.Is(err, domain.ErrRateLimited)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert writes records in fixed-size batches, one network call per batch,
// each wrapped in the backoff helper. Batches run sequentially so the retry
// budget is not multiplied. A failure mid-way leaves earlier batches durably
// written; callers rely on deterministic record ids to make retries safe.
func (s *Store) Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := withBackoff(ctx, func(ctx context.Context) error {
			return s.index.Upsert(ctx, namespace, batch)
		}, s.isRateLimited, s.maxAttempts, s.baseDelay)
		if err != nil {
			return wrapStoreErr(err)
		}
	}

	return nil
}

// Query returns up to topK nearest records by similarity, in store order.
func (s *Store) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]domain.QueryResult, error) {
	if topK <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "topK must be positive")
	}
	results, err := s.index.Query(ctx, namespace, vector, topK)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return results, nil
}

// ListByPrefix returns one page of record ids starting with prefix, ordered
// by id. The returned token resumes the scan; its absence marks the last page.
func (s *Store) ListByPrefix(ctx context.Context, namespace, prefix string, pageSize int, pageToken string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DeletePageSize
	}
	afterID, err := pagination.DecodePageToken(pageToken)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid page token", err)
	}

	ids, err := s.index.ListIDs(ctx, namespace, prefix, afterID, pageSize)
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	page := &Page{IDs: ids}
	if len(ids) == pageSize {
		page.NextPageToken = pagination.EncodePageToken(ids[len(ids)-1])
	}
	return page, nil
}

// DeleteByIDs removes the given records. An empty id set fails with
// EmptyDeleteSet, which callers treat as "nothing to delete".
func (s *Store) DeleteByIDs(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return domain.ErrEmptyDeleteSet
	}

	err := withBackoff(ctx, func(ctx context.Context) error {
		return s.index.DeleteByIDs(ctx, namespace, ids)
	}, s.isRateLimited, s.maxAttempts, s.baseDelay)
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// DeleteByPrefix removes every record whose id starts with prefix, page by
// page. EmptyDeleteSet from a drained page terminates the loop rather than
// surfacing as an error.
func (s *Store) DeleteByPrefix(ctx context.Context, namespace, prefix string) error {
	pageToken := ""
	for {
		page, err := s.ListByPrefix(ctx, namespace, prefix, DeletePageSize, pageToken)
		if err != nil {
			return err
		}

		if err := s.DeleteByIDs(ctx, namespace, page.IDs); err != nil {
			if errors.Is(err, domain.ErrEmptyDeleteSet) {
				return nil
			}
			return err
		}

		if page.NextPageToken == "" {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteNamespace irreversibly removes every record for one tenant. Used only
// when the agent itself is deleted.
func (s *Store) DeleteNamespace(ctx context.Context, namespace string) error {
	if err := s.index.DeleteNamespace(ctx, namespace); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// Stats returns the namespace vector count. Informational only: any error
// degrades to a zero count instead of failing.
func (s *Store) Stats(ctx context.Context, namespace string) NamespaceStats {
	count, err := s.index.Count(ctx, namespace)
	if err != nil {
		log.Printf("namespace stats unavailable for %s: %v", namespace, err)
		return NamespaceStats{}
	}
	return NamespaceStats{VectorCount: count}
}

func wrapStoreErr(err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeVectorStore, "vector store operation failed", err)
}
