package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github/astrolozee/consult/config"
	"github/astrolozee/consult/controller"
	"github/astrolozee/consult/services"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"
)

func main() {
	cfg := config.Load()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	chromaClient, err := chromago.NewHTTPClient()
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	defer func() {
		if cerr := chromaClient.Close(); cerr != nil {
			log.Printf("Warning: Failed to close chroma client: %v", cerr)
		}
	}()

	collection, err := getOrCreateCollection(chromaClient, cfg.CollectionName)
	if err != nil {
		log.Fatalf("FATAL: Failed to get or create collection: %v", err)
	}

	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	embedder := services.NewOllamaEmbedder(httpClient, cfg.OllamaURL, cfg.EmbedModel)
	retriever := services.NewChromaRetriever(embedder, collection)
	generator := services.NewGeminiGenerator(geminiClient, cfg.GeminiModel, cfg.Temperature, cfg.MaxTokens)
	sessionStore := services.NewMemorySessionStore()

	consultService := services.NewConsultService(retriever, generator, sessionStore, cfg.TopK)
	knowledgeService := services.NewKnowledgeService(embedder, collection)
	consultController := controller.NewConsultController(consultService, knowledgeService)

	// Keep the knowledge base in sync with the source-text directory, if one
	// is configured.
	if cfg.KnowledgePath != "" {
		indexer := services.NewKnowledgeIndexer(collection, embedder)
		go indexer.ScanAndIndexDirectory(context.Background(), cfg.KnowledgePath)
		go indexer.WatchDirectory(context.Background(), cfg.KnowledgePath)
	}

	router := gin.Default()

	// CORS middleware for browser clients
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Astro Consultation API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	apiV1.Use(controller.APIKeyAuth(cfg.APIKey))
	{
		apiV1.POST("/ask", consultController.Ask)                    // Consultation endpoint
		apiV1.DELETE("/session/:id", consultController.ClearSession) // Drop session memory
		apiV1.POST("/knowledge", consultController.IngestKnowledge)  // Add a knowledge snippet
		apiV1.GET("/knowledge", consultController.ListKnowledge)     // List the knowledge base
	}

	log.Printf("Astro consultation server starting on http://localhost:%s", cfg.Port)
	log.Printf("Health check available at: http://localhost:%s/health", cfg.Port)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// getOrCreateCollection fetches the knowledge base collection, creating it on
// first run.
func getOrCreateCollection(client chromago.Client, collectionName string) (chromago.Collection, error) {
	ctx := context.Background()

	log.Printf("Getting or creating collection '%s'...", collectionName)

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "Astrological knowledge base"),
				chromago.NewStringAttribute("created_by", "consult_service"),
			),
		),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Successfully got/created collection '%s'", collectionName)
	return collection, nil
}
