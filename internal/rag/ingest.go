package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ceprud-chatbot/internal/logger"
)

// IngestResult summarizes one populate run for a subject.
type IngestResult struct {
	ChunksAdded    int
	ExistingChunks int
	ProcessedFiles []string
	FailedFiles    []string
}

// Ingestor turns a subject's source documents into stored chunks.
type Ingestor struct {
	store     *Store
	splitter  *Splitter
	batchSize int
}

func NewIngestor(store *Store, splitter *Splitter, batchSize int) *Ingestor {
	if batchSize <= 0 {
		batchSize = 128
	}
	return &Ingestor{store: store, splitter: splitter, batchSize: batchSize}
}

// SourceFile names one document to ingest: the filename chunk ids are
// derived from, and where its bytes live on disk.
type SourceFile struct {
	Name string
	Path string
}

// IngestDir processes every supported file under dir into the
// subject's collection.
func (ing *Ingestor) IngestDir(ctx context.Context, subject, dir string) (*IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read material directory %s: %w", dir, err)
	}

	var files []SourceFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".pdf", ".md", ".txt":
			files = append(files, SourceFile{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return ing.IngestFiles(ctx, subject, files)
}

// IngestFiles processes the given documents into the subject's
// collection. Chunk ids are derived from the source filename and chunk
// ordinal, so re-running over the same material is a no-op:
// already-stored chunks are counted and skipped, not re-embedded.
// A file that fails to parse is recorded and does not abort the run.
func (ing *Ingestor) IngestFiles(ctx context.Context, subject string, files []SourceFile) (*IngestResult, error) {
	result := &IngestResult{}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		added, existing, err := ing.ingestFile(ctx, subject, f.Name, f.Path)
		if err != nil {
			logger.Error("failed to ingest file", "subject", subject, "file", f.Name, "error", err)
			result.FailedFiles = append(result.FailedFiles, f.Name)
			continue
		}
		result.ChunksAdded += added
		result.ExistingChunks += existing
		result.ProcessedFiles = append(result.ProcessedFiles, f.Name)
	}
	return result, nil
}

func (ing *Ingestor) ingestFile(ctx context.Context, subject, name, path string) (added, existing int, err error) {
	raw, err := ExtractText(path)
	if err != nil {
		return 0, 0, err
	}
	cleaned := CleanText(raw)
	if cleaned == "" {
		return 0, 0, fmt.Errorf("no usable text in %s", name)
	}

	source := strings.TrimSuffix(name, filepath.Ext(name))
	pieces := ing.splitter.Split(cleaned)

	var batch []Chunk
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ing.store.AddChunks(ctx, subject, batch, 4); err != nil {
			return err
		}
		added += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, piece := range pieces {
		id := fmt.Sprintf("%s-%d", source, i)
		if ing.store.HasChunk(ctx, subject, id) {
			existing++
			continue
		}
		batch = append(batch, Chunk{
			ID:      id,
			Content: piece,
			Metadata: map[string]string{
				"id":      id,
				"source":  name,
				"subject": subject,
			},
		})
		if len(batch) >= ing.batchSize {
			if err := flush(); err != nil {
				return added, existing, err
			}
		}
	}
	if err := flush(); err != nil {
		return added, existing, err
	}

	logger.Info("ingested file", "subject", subject, "file", name, "chunks_added", added, "chunks_existing", existing)
	return added, existing, nil
}
