// Package retrieval answers top-k and latest-document queries against a
// tenant's stored records.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/embeddings"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/tenant"
)

// NoRecordsSentinel is returned by Latest when a tenant has no documents.
// Callers hand it to the user verbatim.
const NoRecordsSentinel = "No health records available."

// DefaultTopK is the number of documents retrieved when the caller does not
// specify k.
const DefaultTopK = 3

// Pipeline orchestrates the tenant manager and the embedding client.
type Pipeline struct {
	manager  *tenant.Manager
	embedder embeddings.Embedder
	logger   *logging.Logger
	metrics  *Metrics
}

// NewPipeline creates a retrieval pipeline.
func NewPipeline(manager *tenant.Manager, embedder embeddings.Embedder, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		manager:  manager,
		embedder: embedder,
		logger:   logger.Named("retrieval"),
		metrics:  NewMetrics(logger.Underlying()),
	}
}

// TopK returns up to k document texts nearest to the query, ascending by
// distance. A tenant with no records yields an empty result, not an error;
// the caller falls back to ungrounded generation. k <= 0 uses DefaultTopK.
func (p *Pipeline) TopK(ctx context.Context, tenantID, query string, k int) ([]string, error) {
	start := time.Now()
	var texts []string
	var opErr error
	defer func() {
		p.metrics.RecordQuery(ctx, "top_k", time.Since(start), len(texts), opErr)
	}()

	if k <= 0 {
		k = DefaultTopK
	}

	n, err := p.manager.Len(ctx, tenantID)
	if err != nil {
		opErr = err
		return nil, err
	}
	if n == 0 {
		p.logger.Debug(ctx, "no records for tenant, skipping search",
			zap.String("tenant_id", tenantID))
		return nil, nil
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		opErr = fmt.Errorf("embedding query: %w", err)
		return nil, opErr
	}

	texts, err = p.manager.Search(ctx, tenantID, queryVec, k)
	if err != nil {
		opErr = err
		return nil, err
	}
	return texts, nil
}

// Latest returns the text of the tenant's most recent document, or
// NoRecordsSentinel when the tenant has none.
func (p *Pipeline) Latest(ctx context.Context, tenantID string) (string, error) {
	start := time.Now()
	var opErr error
	defer func() {
		p.metrics.RecordQuery(ctx, "latest", time.Since(start), 0, opErr)
	}()

	doc, ok, err := p.manager.Latest(ctx, tenantID)
	if err != nil {
		opErr = err
		return "", err
	}
	if !ok {
		return NoRecordsSentinel, nil
	}
	return doc.Text, nil
}
