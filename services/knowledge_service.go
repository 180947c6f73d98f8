package services

import (
	"context"
	"fmt"
	"log"

	"github/astrolozee/consult/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
)

// KnowledgeService manages the astrological knowledge base collection:
// ad hoc snippet ingestion and listing. Bulk indexing of source texts is
// handled by the KnowledgeIndexer.
type KnowledgeService struct {
	embedder   Embedder
	collection chromago.Collection
}

func NewKnowledgeService(embedder Embedder, collection chromago.Collection) *KnowledgeService {
	return &KnowledgeService{
		embedder:   embedder,
		collection: collection,
	}
}

// Ingest embeds a single knowledge snippet and stores it in the collection.
func (k *KnowledgeService) Ingest(ctx context.Context, req models.IngestKnowledgeRequest) error {
	log.Printf("SERVICE: ingesting knowledge snippet: '%.80s'", req.Text)

	embeddingVector, err := k.embedder.EmbedText(ctx, req.Text)
	if err != nil {
		return fmt.Errorf("could not generate embedding for snippet: %w", err)
	}
	embedding := embeddings.NewEmbeddingFromFloat32(embeddingVector)

	metadata := chromago.NewDocumentMetadata(
		chromago.NewStringAttribute("source", "user_input"),
	)

	err = k.collection.Add(ctx,
		chromago.WithIDs(chromago.DocumentID(uuid.New().String())),
		chromago.WithTexts(req.Text),
		chromago.WithEmbeddings(embedding),
		chromago.WithMetadatas(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to add record to chromadb: %w", err)
	}

	log.Printf("SERVICE: successfully added knowledge snippet")
	return nil
}

// List returns every document currently stored in the knowledge base.
func (k *KnowledgeService) List(ctx context.Context) (*models.ListKnowledgeResponse, error) {
	results, err := k.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}

	ids := results.GetIDs()
	documents := results.GetDocuments()
	metadatas := results.GetMetadatas()

	if len(ids) == 0 {
		return &models.ListKnowledgeResponse{
			Count:   0,
			Entries: []models.KnowledgeEntry{},
		}, nil
	}

	entries := make([]models.KnowledgeEntry, 0, len(documents))
	for i := range documents {
		var metadataMap map[string]interface{}
		if len(metadatas) > i && metadatas[i] != nil {
			metadataMap = metadataToMap(metadatas[i])
		}
		entries = append(entries, models.KnowledgeEntry{
			ID:       string(ids[i]),
			Text:     documents[i].ContentString(),
			Metadata: metadataMap,
		})
	}

	log.Printf("SERVICE: listed %d knowledge entries", len(entries))
	return &models.ListKnowledgeResponse{
		Count:   len(entries),
		Entries: entries,
	}, nil
}

// Count reports the number of document chunks in the collection.
func (k *KnowledgeService) Count(ctx context.Context) (int, error) {
	count, err := k.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}
