// Command ingest builds the regulation vector index from a directory of
// plain-text regulation documents.
//
// Usage:
//
//	go run ./cmd/ingest -dir data/regulations -out data/regulations.idx
//
// Requires GEMINI_API_KEY for embeddings. Documents are split on blank
// lines; each paragraph becomes one searchable snippet.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/theadiisingh/finpol/internal/llm"
	"github.com/theadiisingh/finpol/internal/regulation"
)

func main() {
	var (
		dir = flag.String("dir", "data/regulations", "directory of .txt/.md regulation documents")
		out = flag.String("out", "data/regulations.idx", "output index path")
	)
	flag.Parse()

	_ = godotenv.Load()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	ctx := context.Background()
	client, err := llm.NewClient(ctx, apiKey, os.Getenv("GENERATIVE_MODEL"), os.Getenv("EMBEDDING_MODEL"))
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	defer func() { _ = client.Close() }()

	snippets, err := collectSnippets(*dir)
	if err != nil {
		log.Fatalf("Failed to read documents: %v", err)
	}
	if len(snippets) == 0 {
		log.Printf("No documents found in %s, indexing built-in fallback regulations", *dir)
		for _, text := range regulation.FallbackRegulations() {
			snippets = append(snippets, snippet{Content: text, Source: "fallback"})
		}
	}

	var index *regulation.Index
	for i, sn := range snippets {
		vec, err := client.Embed(ctx, sn.Content)
		if err != nil {
			log.Fatalf("Failed to embed snippet %d from %s: %v", i, sn.Source, err)
		}
		if index == nil {
			index = regulation.NewIndex(len(vec))
		}
		if err := index.Add(vec, sn.Content, sn.Source); err != nil {
			log.Fatalf("Failed to index snippet %d: %v", i, err)
		}
	}

	if parent := filepath.Dir(*out); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			log.Fatalf("Failed to create output directory: %v", err)
		}
	}
	if err := index.Save(*out); err != nil {
		log.Fatalf("Failed to save index: %v", err)
	}
	fmt.Printf("Indexed %d snippets into %s\n", index.Len(), *out)
}

type snippet struct {
	Content string
	Source  string
}

func collectSnippets(dir string) ([]snippet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snippets []snippet
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".txt" && ext != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		for _, para := range splitParagraphs(string(data)) {
			snippets = append(snippets, snippet{Content: para, Source: e.Name()})
		}
	}
	return snippets, nil
}

// splitParagraphs breaks a document on blank lines, dropping fragments too
// short to be a useful regulation snippet.
func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if len(p) >= 40 {
			out = append(out, p)
		}
	}
	return out
}
