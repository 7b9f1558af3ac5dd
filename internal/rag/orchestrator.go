// Package rag composes retrieved tenant context with a user query into a
// grounded prompt and delegates to a text generator.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/recalld/internal/generation"
	"github.com/fyrsmithlabs/recalld/internal/logging"
	"github.com/fyrsmithlabs/recalld/internal/retrieval"
)

// latestIntentPhrase short-circuits generation: queries containing it are
// answered with the tenant's most recent record verbatim.
const latestIntentPhrase = "latest health issue"

// Retriever is the slice of the retrieval pipeline the orchestrator needs.
type Retriever interface {
	TopK(ctx context.Context, tenantID, query string, k int) ([]string, error)
	Latest(ctx context.Context, tenantID string) (string, error)
}

// Orchestrator answers user queries, grounding them in retrieved documents
// when any exist.
type Orchestrator struct {
	retriever Retriever
	generator generation.Generator
	topK      int
	logger    *logging.Logger
}

// NewOrchestrator creates an orchestrator. topK <= 0 uses the retrieval
// default.
func NewOrchestrator(retriever Retriever, generator generation.Generator, topK int, logger *logging.Logger) *Orchestrator {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Orchestrator{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		logger:    logger.Named("rag"),
	}
}

// Answer resolves a chat query for a tenant. Queries asking for the latest
// record are answered from storage without calling the generator; everything
// else is generated, grounded in retrieved documents when any match.
func (o *Orchestrator) Answer(ctx context.Context, tenantID, query, conversationContext string) (string, error) {
	if strings.Contains(strings.ToLower(query), latestIntentPhrase) {
		text, err := o.retriever.Latest(ctx, tenantID)
		if err != nil {
			return "", fmt.Errorf("retrieving latest record: %w", err)
		}
		return text, nil
	}

	docs, err := o.retriever.TopK(ctx, tenantID, query, o.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}

	prompt := buildPrompt(conversationContext, docs, query)
	if len(docs) == 0 {
		o.logger.Debug(ctx, "no retrieved context, generating from bare query",
			zap.String("tenant_id", tenantID))
	}

	answer, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	return answer, nil
}

// buildPrompt composes the generation prompt. Without retrieved documents the
// query passes through, prefixed by the conversation context when present.
func buildPrompt(conversationContext string, docs []string, query string) string {
	if len(docs) == 0 {
		if conversationContext == "" {
			return query
		}
		return conversationContext + "\n" + query
	}
	var b strings.Builder
	b.WriteString(conversationContext)
	b.WriteString("\nRelevant Information:\n")
	b.WriteString(strings.Join(docs, "\n"))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	return b.String()
}
