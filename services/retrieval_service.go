package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github/astrolozee/consult/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"golang.org/x/sync/errgroup"
)

// Embedder produces a vector embedding for a piece of text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs a top-K similarity search against the knowledge base.
// A failed search is an external fault; the caller decides the fallback.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]models.KnowledgeDocument, error)
}

// OllamaEmbedder calls a local Ollama instance's embedding API.
type OllamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewOllamaEmbedder(client *http.Client, baseURL, model string) *OllamaEmbedder {
	return &OllamaEmbedder{
		httpClient: client,
		baseURL:    baseURL,
		model:      model,
	}
}

func (o *OllamaEmbedder) EmbedText(ctx context.Context, textToEmbed string) ([]float32, error) {
	reqBody, err := json.Marshal(models.OllamaEmbedRequest{
		Model:  o.model,
		Prompt: textToEmbed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp models.OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return ollamaResp.Embedding, nil
}

// ChromaRetriever implements Retriever against a ChromaDB collection.
type ChromaRetriever struct {
	embedder   Embedder
	collection chromago.Collection
}

func NewChromaRetriever(embedder Embedder, collection chromago.Collection) *ChromaRetriever {
	return &ChromaRetriever{
		embedder:   embedder,
		collection: collection,
	}
}

func (r *ChromaRetriever) Retrieve(ctx context.Context, query string, k int) ([]models.KnowledgeDocument, error) {
	queryEmbedding, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}
	embedding := embeddings.NewEmbeddingFromFloat32(queryEmbedding)

	results, err := r.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(embedding),
		chromago.WithNResults(k),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var documents []models.KnowledgeDocument
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()

	if len(documentGroups) > 0 {
		for i, doc := range documentGroups[0] {
			if doc.ContentString() == "" {
				continue
			}
			var metadataMap map[string]interface{}
			if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
				metadataMap = metadataToMap(metadataGroups[0][i])
			}
			documents = append(documents, models.KnowledgeDocument{
				Text:     doc.ContentString(),
				Metadata: metadataMap,
			})
		}
	}
	log.Printf("SERVICE: retrieved %d documents for query", len(documents))
	return documents, nil
}

// metadataToMap converts chroma's DocumentMetadata into a plain map. The
// struct exposes no accessor for its values, so a JSON round-trip is the
// supported conversion.
func metadataToMap(metadata chromago.DocumentMetadata) map[string]interface{} {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("WARN: could not marshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	var metadataMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		log.Printf("WARN: could not unmarshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	return metadataMap
}

// RetrieveMerged runs the question lookup and, when a context string is
// present, a second concurrent lookup, then joins and deduplicates the
// results. The fan-out is bounded at two; an absent context skips the second
// call entirely.
func RetrieveMerged(ctx context.Context, retriever Retriever, question, contextText string, k int) ([]models.KnowledgeDocument, error) {
	var questionDocs, contextDocs []models.KnowledgeDocument

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := retriever.Retrieve(gctx, question, k)
		if err != nil {
			return err
		}
		questionDocs = docs
		return nil
	})
	if contextText != "" {
		g.Go(func() error {
			docs, err := retriever.Retrieve(gctx, contextText, k)
			if err != nil {
				return err
			}
			contextDocs = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return DedupDocuments(append(questionDocs, contextDocs...)), nil
}

// DedupDocuments keeps the first occurrence of each unique document text,
// preserving the incoming order: question-derived results first, then
// context-derived ones, each in retrieval rank order.
func DedupDocuments(docs []models.KnowledgeDocument) []models.KnowledgeDocument {
	seen := make(map[string]struct{}, len(docs))
	deduped := make([]models.KnowledgeDocument, 0, len(docs))
	for _, doc := range docs {
		if _, ok := seen[doc.Text]; ok {
			continue
		}
		seen[doc.Text] = struct{}{}
		deduped = append(deduped, doc)
	}
	return deduped
}

// PackRetrievedBlock concatenates the retrieved document texts into the
// single block bound into the prompt. An empty document list yields an empty
// string; the prompt builder substitutes its placeholder in that case.
func PackRetrievedBlock(docs []models.KnowledgeDocument) string {
	if len(docs) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, doc := range docs {
		if i > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(doc.Text)
	}
	return buf.String()
}
