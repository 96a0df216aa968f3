package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadSeedDir parses every .json file in dir into documents. Each file holds
// either a single document object or an array of them. Files are read in
// name order so reseeding is deterministic.
func LoadSeedDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var docs []Document
	for _, name := range names {
		fileDocs, err := loadSeedFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func loadSeedFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	var docs []Document
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
		}
	} else {
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
		}
		docs = []Document{doc}
	}

	valid := docs[:0]
	for _, doc := range docs {
		if strings.TrimSpace(doc.CombinedText) == "" {
			log.Printf("[index] skipping seed document with empty text in %s", filepath.Base(path))
			continue
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("issue_%d", doc.IssueID)
		}
		valid = append(valid, doc)
	}
	return valid, nil
}

// Seed loads dir and indexes its documents. A missing or empty directory
// leaves the index untouched.
func (x *Index) Seed(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Printf("[index] seed directory %s does not exist, skipping", dir)
		return nil
	}

	docs, err := LoadSeedDir(dir)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		log.Printf("[index] no seed documents in %s", dir)
		return nil
	}
	return x.IndexDocuments(ctx, docs)
}
