package services

import (
	"context"
	"encoding/json"

	"github.com/AlexLuu1/Memento/logging"
	"github.com/AlexLuu1/Memento/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/m-mizutani/goerr/v2"
)

// MemoryStore persists memory documents and ranks them by similarity.
type MemoryStore interface {
	// Upsert replaces the document and metadata stored under id.
	Upsert(ctx context.Context, id, text string, metadata map[string]string) error
	Get(ctx context.Context, id string) (*models.StoredDocument, error)
	ListAll(ctx context.Context) ([]models.StoredDocument, error)
	// Query returns at most limit documents, most similar first.
	Query(ctx context.Context, text string, limit int) ([]models.StoredDocument, error)
}

type chromaMemoryStore struct {
	collection chromago.Collection
	embedder   Embedder
}

func NewChromaMemoryStore(collection chromago.Collection, embedder Embedder) MemoryStore {
	return &chromaMemoryStore{
		collection: collection,
		embedder:   embedder,
	}
}

// GetOrCreateCollection opens the named collection on the Chroma server.
// Extra options are applied after the collection metadata.
func GetOrCreateCollection(ctx context.Context, client chromago.Client, name string, opts ...chromago.CreateCollectionOption) (chromago.Collection, error) {
	logging.From(ctx).Info("opening chroma collection", "name", name)

	options := append([]chromago.CreateCollectionOption{
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Memento family memories"),
				chromago.NewStringAttribute("created_by", "memento"),
			),
		),
	}, opts...)

	collection, err := client.GetOrCreateCollection(ctx, name, options...)
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to get or create collection",
			goerr.V("collection", name))
	}
	return collection, nil
}

func (s *chromaMemoryStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) error {
	vector, err := s.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return goerr.Wrap(kindError(ErrEmbedding, err), "could not embed memory", goerr.V("id", id))
	}

	attrs := make([]*chromago.MetaAttribute, 0, len(metadata))
	for k, v := range metadata {
		attrs = append(attrs, chromago.NewStringAttribute(k, v))
	}

	err = s.collection.Upsert(ctx,
		chromago.WithIDs(chromago.DocumentID(id)),
		chromago.WithTexts(text),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithMetadatas(chromago.NewDocumentMetadata(attrs...)),
	)
	if err != nil {
		return goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to upsert memory", goerr.V("id", id))
	}

	logging.From(ctx).Debug("upserted memory", "id", id)
	return nil
}

func (s *chromaMemoryStore) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	results, err := s.collection.Get(ctx, chromago.WithIDsGet(chromago.DocumentID(id)))
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to get memory", goerr.V("id", id))
	}

	docs := getResultDocuments(ctx, results)
	if len(docs) == 0 {
		return nil, goerr.Wrap(ErrNotFound, "no document with id", goerr.V("id", id))
	}
	return &docs[0], nil
}

func (s *chromaMemoryStore) ListAll(ctx context.Context) ([]models.StoredDocument, error) {
	results, err := s.collection.Get(ctx)
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to list memories")
	}
	return getResultDocuments(ctx, results), nil
}

func (s *chromaMemoryStore) Query(ctx context.Context, text string, limit int) ([]models.StoredDocument, error) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to count memories")
	}
	if count == 0 {
		return []models.StoredDocument{}, nil
	}
	if int(count) < limit {
		limit = int(count)
	}

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrEmbedding, err), "failed to embed query text")
	}

	results, err := s.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, goerr.Wrap(kindError(ErrStoreUnavailable, err), "failed to query memories")
	}

	docs := []models.StoredDocument{}
	docGroups := results.GetDocumentsGroups()
	if len(docGroups) == 0 {
		return docs, nil
	}
	idGroups := results.GetIDGroups()
	metaGroups := results.GetMetadatasGroups()

	for i, doc := range docGroups[0] {
		if doc == nil || doc.ContentString() == "" {
			continue
		}
		sd := models.StoredDocument{Text: doc.ContentString()}
		if len(idGroups) > 0 && len(idGroups[0]) > i {
			sd.ID = string(idGroups[0][i])
		}
		if len(metaGroups) > 0 && len(metaGroups[0]) > i {
			sd.Metadata = metadataToMap(ctx, metaGroups[0][i])
		}
		docs = append(docs, sd)
	}
	return docs, nil
}

func getResultDocuments(ctx context.Context, results chromago.GetResult) []models.StoredDocument {
	ids := results.GetIDs()
	documents := results.GetDocuments()
	metadatas := results.GetMetadatas()

	docs := make([]models.StoredDocument, 0, len(ids))
	for i := range ids {
		sd := models.StoredDocument{ID: string(ids[i])}
		if len(documents) > i && documents[i] != nil {
			sd.Text = documents[i].ContentString()
		}
		if len(metadatas) > i {
			sd.Metadata = metadataToMap(ctx, metadatas[i])
		}
		docs = append(docs, sd)
	}
	return docs
}

// metadataToMap converts chroma document metadata through its JSON form,
// which is the only way to enumerate every attribute.
func metadataToMap(ctx context.Context, metadata chromago.DocumentMetadata) map[string]interface{} {
	out := make(map[string]interface{})
	if metadata == nil {
		return out
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		logging.From(ctx).Warn("could not marshal metadata", "error", err)
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logging.From(ctx).Warn("could not unmarshal metadata", "error", err)
		return make(map[string]interface{})
	}
	return out
}
