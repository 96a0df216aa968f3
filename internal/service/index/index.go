// Package index stores municipal issue documents with their embeddings and
// answers top-k similarity queries, with a keyword score folded in.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	_ "modernc.org/sqlite"

	"github.com/hualaowei/chatbot/backend/internal/fault"
)

// keywordBoost scales how much the BM25 score can add on top of the cosine
// similarity. The keyword side refines ranking; it never rescues a document
// the vector side scored at zero hits overall.
const keywordBoost = 0.25

// Document is one indexed municipal issue.
type Document struct {
	ID           string `json:"id"`
	IssueID      int64  `json:"issue_id"`
	IssueType    string `json:"issue_type"`
	IssueSubtype string `json:"subcategory"`
	CombinedText string `json:"text"`
}

// Hit is a retrieved document with its fused relevance score.
type Hit struct {
	Document
	Score float64
}

// Index is the persistent retrieval store: documents and vectors in SQLite,
// keyword postings in a bleve index alongside.
type Index struct {
	db       *sql.DB
	keyword  bleve.Index
	embedder Embedder
}

// New opens (or creates) the index at dbPath. The bleve index lives next to
// the database file.
func New(ctx context.Context, dbPath string, embedder Embedder) (*Index, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping index database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id            TEXT PRIMARY KEY,
		issue_id      INTEGER NOT NULL,
		issue_type    TEXT NOT NULL,
		issue_subtype TEXT NOT NULL,
		combined_text TEXT NOT NULL,
		dim           INTEGER NOT NULL,
		vector        BLOB NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize index schema: %w", err)
	}

	keywordIndex, err := openKeywordIndex(dbPath + ".bleve")
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Index{db: db, keyword: keywordIndex, embedder: embedder}, nil
}

func openKeywordIndex(path string) (bleve.Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildKeywordMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create keyword index: %w", err)
		}
		return idx, nil
	}
	if err != nil {
		// Corrupted index: rebuild from scratch. Documents are re-indexed
		// from the seed directory on startup.
		log.Printf("[index] keyword index unreadable, recreating: %v", err)
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, fmt.Errorf("failed to remove keyword index: %w", removeErr)
		}
		idx, err = bleve.New(path, buildKeywordMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate keyword index: %w", err)
		}
	}
	return idx, nil
}

func buildKeywordMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	docMapping.AddFieldMappingsAt("id", idField)

	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	typeField.Store = true
	docMapping.AddFieldMappingsAt("issue_type", typeField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close releases the database and the keyword index.
func (x *Index) Close() error {
	keywordErr := x.keyword.Close()
	if err := x.db.Close(); err != nil {
		return err
	}
	return keywordErr
}

// Count returns the number of indexed documents.
func (x *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// IndexDocuments embeds and upserts docs. Existing IDs are replaced.
func (x *Index) IndexDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.CombinedText
	}

	vectors, err := x.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(docs) {
		return fault.New(fault.Malformed, "index.write", fmt.Errorf("vector count mismatch"))
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO documents (id, issue_id, issue_type, issue_subtype, combined_text, dim, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			issue_id = excluded.issue_id,
			issue_type = excluded.issue_type,
			issue_subtype = excluded.issue_subtype,
			combined_text = excluded.combined_text,
			dim = excluded.dim,
			vector = excluded.vector
	`
	for i, doc := range docs {
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("issue_%d", doc.IssueID)
		}
		encoded := encodeVector(vectors[i])
		if _, err := tx.ExecContext(ctx, upsert,
			doc.ID, doc.IssueID, doc.IssueType, doc.IssueSubtype, doc.CombinedText, len(vectors[i]), encoded); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}

	batch := x.keyword.NewBatch()
	for _, doc := range docs {
		id := doc.ID
		if id == "" {
			id = fmt.Sprintf("issue_%d", doc.IssueID)
		}
		err := batch.Index(id, map[string]any{
			"id":         id,
			"issue_type": doc.IssueType,
			"text":       doc.CombinedText,
		})
		if err != nil {
			return fmt.Errorf("failed to batch document %s: %w", id, err)
		}
	}
	if err := x.keyword.Batch(batch); err != nil {
		return fmt.Errorf("failed to update keyword index: %w", err)
	}

	log.Printf("[index] indexed %d documents", len(docs))
	return nil
}

// Search embeds query and returns the k most similar documents, best first.
// BM25 keyword scores boost the cosine ranking but cannot produce hits on
// their own: an empty index yields an empty result.
func (x *Index) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		k = 3
	}

	queryVector, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT id, issue_id, issue_type, issue_subtype, combined_text, vector FROM documents`)
	if err != nil {
		return nil, fault.New(fault.Transport, "index.search", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var blob []byte
		if err := rows.Scan(&hit.ID, &hit.IssueID, &hit.IssueType, &hit.IssueSubtype, &hit.CombinedText, &blob); err != nil {
			return nil, fault.New(fault.Malformed, "index.search", err)
		}
		vector, err := decodeVector(blob)
		if err != nil {
			return nil, fault.New(fault.Malformed, "index.search", err)
		}
		hit.Score = cosineSimilarity(queryVector, vector)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.New(fault.Transport, "index.search", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	applyKeywordBoost(x.keyword, query, hits)

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// applyKeywordBoost adds a scaled BM25 score to each hit that also matches
// the keyword index. Keyword failures only cost the boost.
func applyKeywordBoost(kw bleve.Index, query string, hits []Hit) {
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = len(hits)

	result, err := kw.Search(req)
	if err != nil {
		log.Printf("[index] keyword search failed, vector scores only: %v", err)
		return
	}
	if len(result.Hits) == 0 {
		return
	}

	maxScore := result.Hits[0].Score
	for _, h := range result.Hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore <= 0 {
		return
	}

	scores := make(map[string]float64, len(result.Hits))
	for _, h := range result.Hits {
		scores[h.ID] = h.Score / maxScore
	}

	for i := range hits {
		if s, ok := scores[hits[i].ID]; ok {
			hits[i].Score += keywordBoost * s
		}
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
