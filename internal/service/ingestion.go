package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/extract"
	"github.com/archivist-ai/archivist/internal/store"
	"github.com/archivist-ai/archivist/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// StorageClientInterface stores raw document blobs in object storage.
type StorageClientInterface interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// IngestionService turns uploaded documents into searchable embedding
// records: extract text, chunk, embed, and store chunks atomically with the
// document status flip.
type IngestionService struct {
	docs     DocumentRepositoryInterface
	vectors  store.VectorStore
	embedder EmbeddingClient
	chunker  *Chunker
	jobs     IngestJobRepositoryInterface
	storage  StorageClientInterface
	txRunner TxRunnerInterface
	uuidGen  UUIDGenerator
}

// NewIngestionService creates an IngestionService without async or blob
// storage support.
func NewIngestionService(
	docs DocumentRepositoryInterface,
	vectors store.VectorStore,
	embedder EmbeddingClient,
	chunker *Chunker,
	uuidGen UUIDGenerator,
) *IngestionService {
	return &IngestionService{
		docs:     docs,
		vectors:  vectors,
		embedder: embedder,
		chunker:  chunker,
		uuidGen:  uuidGen,
	}
}

// WithJobs enables async ingestion through the job queue.
func (s *IngestionService) WithJobs(jobs IngestJobRepositoryInterface) *IngestionService {
	s.jobs = jobs
	return s
}

// WithStorage parks raw document bytes in object storage instead of the
// documents table.
func (s *IngestionService) WithStorage(storageClient StorageClientInterface) *IngestionService {
	s.storage = storageClient
	return s
}

// WithTxRunner makes the record insert and document status flip share one
// database transaction.
func (s *IngestionService) WithTxRunner(txRunner TxRunnerInterface) *IngestionService {
	s.txRunner = txRunner
	return s
}

type IngestInput struct {
	Collection  string
	Title       string
	Format      string
	Content     []byte
	OwnerUserID string
}

type IngestResult struct {
	DocumentID string
	ChunkCount int
}

// Ingest runs the full pipeline synchronously and returns once the document
// is searchable.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.Ingest", telemetry.SpanAttributes{
		UserID:     input.OwnerUserID,
		Collection: input.Collection,
		Operation:  "ingest",
	})
	defer span.End()

	doc, err := s.createDocument(ctx, input)
	if err != nil {
		return nil, err
	}

	chunkCount, err := s.process(ctx, doc, input.OwnerUserID, input.Content)
	if err != nil {
		span.SetError(err)
		_ = s.docs.MarkFailed(ctx, doc.ID)
		return nil, err
	}

	return &IngestResult{DocumentID: doc.ID, ChunkCount: chunkCount}, nil
}

type IngestAsyncResult struct {
	DocumentID string
	JobID      string
}

// IngestAsync stores the document and queues an ingest job for the
// background worker. The document stays pending until the worker finishes.
func (s *IngestionService) IngestAsync(ctx context.Context, input IngestInput) (*IngestAsyncResult, error) {
	if s.jobs == nil {
		return nil, domain.NewDomainError(domain.ErrCodeInternalError, "async ingestion not configured")
	}

	doc, err := s.createDocument(ctx, input)
	if err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), doc.ID, time.Now().UTC())
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to queue ingest job: %w", err)
	}

	return &IngestAsyncResult{DocumentID: doc.ID, JobID: job.ID}, nil
}

// ProcessDocument runs the pipeline for a stored document. Called by the
// ingest worker.
func (s *IngestionService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	content := doc.Content
	if len(content) == 0 && doc.StorageKey != "" && s.storage != nil {
		content, err = s.storage.GetObject(ctx, doc.StorageKey)
		if err != nil {
			_ = s.docs.MarkFailed(ctx, doc.ID)
			return fmt.Errorf("failed to fetch document blob: %w", err)
		}
	}

	owner := s.collectionOwner(ctx, doc.Collection)

	if _, err := s.process(ctx, doc, owner, content); err != nil {
		span.SetError(err)
		_ = s.docs.MarkFailed(ctx, doc.ID)
		return err
	}
	return nil
}

// DeleteDocument removes the document, its embedding records and its stored
// blob. Deleting is idempotent: an unknown document id is a no-op, not an
// error. Documents in another user's collection cannot be deleted.
func (s *IngestionService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.DeleteDocument", telemetry.SpanAttributes{
		UserID:     userID,
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil
		}
		return err
	}

	if err := s.authorizeCollection(ctx, userID, doc.Collection); err != nil {
		return err
	}

	if _, err := s.vectors.DeleteDocument(ctx, doc.Collection, doc.ID); err != nil {
		return fmt.Errorf("failed to delete embedding records: %w", err)
	}

	if doc.StorageKey != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			return fmt.Errorf("failed to delete document blob: %w", err)
		}
	}

	return s.docs.Delete(ctx, doc.ID)
}

// GetDocument returns document metadata. Documents in another user's
// collection are off limits.
func (s *IngestionService) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCollection(ctx, userID, doc.Collection); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the documents of one collection the user owns.
func (s *IngestionService) ListDocuments(ctx context.Context, userID, collection string) ([]*domain.Document, error) {
	if err := domain.ValidateCollectionName(collection); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid collection name", err)
	}
	if err := s.authorizeCollection(ctx, userID, collection); err != nil {
		return nil, err
	}
	return s.docs.ListByCollection(ctx, collection)
}

func (s *IngestionService) createDocument(ctx context.Context, input IngestInput) (*domain.Document, error) {
	if err := domain.ValidateCollectionName(input.Collection); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid collection name", err)
	}
	format, err := domain.ParseFormat(input.Format)
	if err != nil {
		return nil, err
	}
	if len(input.Content) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if err := s.authorizeCollection(ctx, input.OwnerUserID, input.Collection); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.Collection, input.Title, format, input.Content, now)

	if s.storage != nil {
		key := fmt.Sprintf("documents/%s/%s", input.Collection, doc.ID)
		if err := s.storage.PutObject(ctx, key, contentTypeFor(format), input.Content); err != nil {
			return nil, fmt.Errorf("failed to store document blob: %w", err)
		}
		doc.StorageKey = key
		doc.Content = nil
	}

	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// process extracts, chunks, embeds and stores a document's records, then
// marks it ready. Returns the chunk count.
func (s *IngestionService) process(ctx context.Context, doc *domain.Document, ownerUserID string, content []byte) (int, error) {
	text, err := extract.Extract(content, doc.Format)
	if err != nil {
		return 0, err
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	records := make([]domain.EmbeddingRecord, len(chunks))
	for i := range chunks {
		records[i] = domain.EmbeddingRecord{
			ID:         s.uuidGen.NewString(),
			Collection: doc.Collection,
			DocumentID: doc.ID,
			ChunkIndex: chunks[i].Index,
			Title:      doc.Title,
			Content:    chunks[i].Text,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	if s.txRunner != nil {
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Vectors().Insert(ctx, ownerUserID, records); err != nil {
				return err
			}
			return repos.Documents().MarkReady(ctx, doc.ID, len(records))
		})
	} else {
		if err = s.vectors.Insert(ctx, ownerUserID, records); err == nil {
			err = s.docs.MarkReady(ctx, doc.ID, len(records))
		}
	}
	if err != nil {
		return 0, err
	}

	if s.storage != nil && doc.StorageKey != "" && len(doc.Content) > 0 {
		_ = s.docs.ClearContent(ctx, doc.ID)
	}

	return len(records), nil
}

// authorizeCollection rejects operations on a collection owned by another
// user. A collection that does not exist yet has no owner and passes.
func (s *IngestionService) authorizeCollection(ctx context.Context, userID, collection string) error {
	owner := s.collectionOwner(ctx, collection)
	if owner != "" && owner != userID {
		return domain.ErrAccessDenied
	}
	return nil
}

// collectionOwner resolves the owner of an existing collection so records
// processed by the worker keep the original ownership.
func (s *IngestionService) collectionOwner(ctx context.Context, collection string) string {
	collections, err := s.vectors.ListCollections(ctx)
	if err != nil {
		return ""
	}
	for _, c := range collections {
		if c.Name == collection {
			return c.OwnerUserID
		}
	}
	return ""
}

func contentTypeFor(format domain.DocumentFormat) string {
	switch format {
	case domain.FormatPDF:
		return "application/pdf"
	case domain.FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case domain.FormatHTML:
		return "text/html"
	case domain.FormatJSON:
		return "application/json"
	case domain.FormatXML:
		return "application/xml"
	case domain.FormatMarkdown:
		return "text/markdown"
	default:
		return "text/plain"
	}
}
