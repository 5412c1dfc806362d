package query

import (
	"context"
	"log"
	"strings"

	"github.com/passbi/passbi_planner/internal/apperrors"
	"github.com/passbi/passbi_planner/internal/knowledge"
	"github.com/passbi/passbi_planner/internal/models"
)

// FallbackAnswer is returned whenever retrieval or generation fails
const FallbackAnswer = "I'm sorry, I couldn't process your request at this time."

// Retriever returns knowledge units relevant to a query
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts knowledge.RetrieveOptions) ([]models.KnowledgeUnit, error)
}

// Generator produces text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is a natural-language question with optional context
type Request struct {
	Text                string
	TransportPreference string
	UserLocation        string
	Route               *models.RouteKey // optional, restricts retrieval to one route
}

// Options tunes retrieval
type Options struct {
	K      int
	FetchK int
	Lambda float64
}

// Engine answers questions about previously planned routes
type Engine struct {
	retriever Retriever
	generator Generator
	opts      Options
}

// NewEngine creates an engine from its collaborators
func NewEngine(retriever Retriever, generator Generator, opts Options) *Engine {
	if opts.K <= 0 {
		opts.K = knowledge.DefaultK
	}
	if opts.FetchK <= 0 {
		opts.FetchK = knowledge.DefaultFetchK
	}
	return &Engine{
		retriever: retriever,
		generator: generator,
		opts:      opts,
	}
}

// Query answers req using conv's history. Failures never reach the caller:
// they are logged and replaced by FallbackAnswer, and conv is left untouched.
func (e *Engine) Query(ctx context.Context, conv *Conversation, req Request) string {
	answer, err := e.answer(ctx, conv, req)
	if err != nil {
		log.Printf("Error querying route knowledge: %v", err)
		return FallbackAnswer
	}

	conv.Append(req.Text, answer)
	return answer
}

func (e *Engine) answer(ctx context.Context, conv *Conversation, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", apperrors.Newf(apperrors.EmptyInput, "question is empty")
	}

	enhanced := enhanceQuery(req.Text, req.UserLocation, req.TransportPreference)

	units, err := e.retriever.Retrieve(ctx, enhanced, knowledge.RetrieveOptions{
		K:      e.opts.K,
		FetchK: e.opts.FetchK,
		Lambda: e.opts.Lambda,
		Route:  req.Route,
	})
	if err != nil {
		return "", apperrors.New(apperrors.RetrievalOrModelError, "retrieval failed", err)
	}

	prompt, err := buildPrompt(conv.History(), buildContext(units), req.Text, req.TransportPreference)
	if err != nil {
		return "", apperrors.New(apperrors.InternalError, "failed to render prompt", err)
	}

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", apperrors.New(apperrors.RetrievalOrModelError, "generation failed", err)
	}
	return answer, nil
}
