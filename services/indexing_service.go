package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

// KnowledgeIndexer keeps the knowledge base collection in sync with a
// directory of astrological source texts (.txt, .md and .pdf books). Files
// are chunked, embedded and stored with enough metadata to detect changes
// and delete stale chunks.
type KnowledgeIndexer struct {
	collection chromago.Collection
	embedder   Embedder
}

func NewKnowledgeIndexer(collection chromago.Collection, embedder Embedder) *KnowledgeIndexer {
	return &KnowledgeIndexer{
		collection: collection,
		embedder:   embedder,
	}
}

// indexState holds the current hash of a file in the index.
type indexState struct {
	Hash string
}

// WatchDirectory runs until the context is cancelled, re-indexing files as
// they change on disk.
func (s *KnowledgeIndexer) WatchDirectory(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isSupportedFile(event.Name) {
					continue
				}

				// Editors often write via a temp file and rename, so Create
				// and Write are handled identically.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: file modified/created: %s, re-indexing", event.Name)
					hash, err := calculateFileHash(event.Name)
					if err != nil {
						log.Printf("WATCHER WARN: could not hash file %s: %v", event.Name, err)
						continue
					}
					s.deleteChunksByFilepath(ctx, event.Name)
					if err := s.processAndEmbedFile(ctx, event.Name, hash); err != nil {
						log.Printf("WATCHER ERROR: failed to process file %s: %v", event.Name, err)
					}
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					log.Printf("WATCHER: file removed/renamed: %s, removing from index", event.Name)
					if err := s.deleteChunksByFilepath(ctx, event.Name); err != nil {
						log.Printf("WATCHER ERROR: failed to delete records for %s: %v", event.Name, err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: context cancelled, shutting down watcher")
				return
			}
		}
	}()

	log.Printf("WATCHER: watching knowledge directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: failed to add path to watcher: %v", err)
	}

	<-ctx.Done()
}

// ScanAndIndexDirectory syncs the directory with the collection: new and
// changed files are (re)indexed, deleted files are removed.
func (s *KnowledgeIndexer) ScanAndIndexDirectory(ctx context.Context, dirPath string) {
	log.Printf("INDEXER: starting knowledge scan for: %s", dirPath)

	indexedFiles, err := s.getCurrentIndexState(ctx)
	if err != nil {
		log.Printf("INDEXER ERROR: could not get current index state: %v", err)
		return
	}
	log.Printf("INDEXER: found %d files currently in the index", len(indexedFiles))

	localFiles := make(map[string]bool)
	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		localFiles[path] = true
		hash, err := calculateFileHash(path)
		if err != nil {
			log.Printf("INDEXER WARN: could not hash file %s: %v", path, err)
			return nil
		}

		if state, ok := indexedFiles[path]; ok {
			if state.Hash == hash {
				return nil // unchanged
			}
			log.Printf("INDEXER: file has changed: %s, re-indexing", path)
			if err := s.deleteChunksByFilepath(ctx, path); err != nil {
				log.Printf("INDEXER ERROR: failed to delete old version of %s: %v", path, err)
				return nil
			}
		}

		log.Printf("INDEXER: indexing new/modified file: %s", path)
		if err := s.processAndEmbedFile(ctx, path, hash); err != nil {
			log.Printf("INDEXER ERROR: failed to process file %s: %v", path, err)
		}
		return nil
	})
	if err != nil {
		log.Printf("INDEXER ERROR: error walking the path %s: %v", dirPath, err)
	}

	for path := range indexedFiles {
		if !localFiles[path] {
			log.Printf("INDEXER: file deleted: %s, removing from index", path)
			if err := s.deleteChunksByFilepath(ctx, path); err != nil {
				log.Printf("INDEXER ERROR: failed to delete records for %s: %v", path, err)
			}
		}
	}
	log.Println("INDEXER: knowledge scan finished")
}

func (s *KnowledgeIndexer) processAndEmbedFile(ctx context.Context, path, hash string) error {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(1000),
		textsplitter.WithChunkOverlap(100),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return err
	}
	log.Printf("INDEXER: split %s into %d chunks", path, len(chunks))

	for i, chunk := range chunks {
		embeddingVector, err := s.embedder.EmbedText(ctx, chunk)
		if err != nil {
			return fmt.Errorf("could not embed chunk %d of %s: %w", i, path, err)
		}
		embedding := embeddings.NewEmbeddingFromFloat32(embeddingVector)
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("source_file", path),
			chromago.NewStringAttribute("file_hash", hash),
			chromago.NewIntAttribute("chunk_num", int64(i)),
		)
		docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", uuid.New().String(), i))
		err = s.collection.Add(ctx,
			chromago.WithIDs(docID),
			chromago.WithTexts(chunk),
			chromago.WithEmbeddings(embedding),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d of %s to chromadb: %w", i, path, err)
		}
	}
	return nil
}

func (s *KnowledgeIndexer) getCurrentIndexState(ctx context.Context) (map[string]indexState, error) {
	state := make(map[string]indexState)
	results, err := s.collection.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		metaMap := metadataToMap(meta)
		path, ok := metaMap["source_file"].(string)
		if !ok {
			continue
		}
		hash, ok := metaMap["file_hash"].(string)
		if !ok {
			continue
		}
		if _, exists := state[path]; !exists {
			state[path] = indexState{Hash: hash}
		}
	}
	return state, nil
}

func (s *KnowledgeIndexer) deleteChunksByFilepath(ctx context.Context, path string) error {
	where := chromago.EqString("source_file", path)
	return s.collection.Delete(ctx, chromago.WithWhereDelete(where))
}

func isSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	default:
		return false
	}
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
