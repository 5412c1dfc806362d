package query

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/passbi/passbi_planner/internal/knowledge"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetriever struct {
	units     []models.KnowledgeUnit
	err       error
	lastQuery string
	lastOpts  knowledge.RetrieveOptions
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, opts knowledge.RetrieveOptions) ([]models.KnowledgeUnit, error) {
	f.lastQuery = query
	f.lastOpts = opts
	return f.units, f.err
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

func TestEnhanceQuery(t *testing.T) {
	tests := []struct {
		name     string
		location string
		pref     string
		expected string
	}{
		{"Plain", "", "", "How far is it?"},
		{"Location only", "Union Station", "", "How far is it? (User is currently at Union Station)"},
		{"Preference only", "", "bus", "How far is it? (Preferred transport: bus)"},
		{"Location before preference", "Union Station", "bike", "How far is it? (User is currently at Union Station) (Preferred transport: bike)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, enhanceQuery("How far is it?", tt.location, tt.pref))
		})
	}
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	units := []models.KnowledgeUnit{
		{Content: "Complete route from Rome to Baltimore by car"},
		{Content: "Step 1: Head north"},
	}

	t.Run("Answer is returned verbatim and recorded", func(t *testing.T) {
		retriever := &fakeRetriever{units: units}
		generator := &fakeGenerator{answer: "  Take the I-95 north.\n"}
		engine := NewEngine(retriever, generator, Options{})
		conv := NewConversation()

		answer := engine.Query(ctx, conv, Request{
			Text:                "How do I get there?",
			TransportPreference: "car",
			UserLocation:        "Rome",
		})

		assert.Equal(t, "  Take the I-95 north.\n", answer)
		assert.Equal(t, "How do I get there? (User is currently at Rome) (Preferred transport: car)", retriever.lastQuery)
		assert.Equal(t, 5, retriever.lastOpts.K)
		assert.Equal(t, 10, retriever.lastOpts.FetchK)

		require.Len(t, generator.prompts, 1)
		prompt := generator.prompts[0]
		assert.Contains(t, prompt, "User Query: How do I get there?\n")
		assert.NotContains(t, prompt, "User is currently at")
		assert.Contains(t, prompt, "Complete route from Rome to Baltimore by car\n\nStep 1: Head north")
		assert.Contains(t, prompt, "Transport Preference: car")
		assert.Contains(t, prompt, "Chat History: none")

		history := conv.History()
		require.Len(t, history, 1)
		assert.Equal(t, "How do I get there?", history[0].Query)
		assert.Equal(t, answer, history[0].Answer)
	})

	t.Run("History is included oldest first", func(t *testing.T) {
		generator := &fakeGenerator{answer: "ok"}
		engine := NewEngine(&fakeRetriever{}, generator, Options{})
		conv := NewConversation()
		conv.Append("first question", "first answer")
		conv.Append("second question", "second answer")

		engine.Query(ctx, conv, Request{Text: "third question"})

		prompt := generator.prompts[0]
		first := strings.Index(prompt, "User: first question\nAssistant: first answer")
		second := strings.Index(prompt, "User: second question\nAssistant: second answer")
		assert.True(t, first >= 0 && second > first)
		assert.Contains(t, prompt, "Transport Preference: any")
		assert.Equal(t, 3, conv.Len())
	})

	t.Run("Retrieval failure falls back", func(t *testing.T) {
		generator := &fakeGenerator{answer: "never"}
		engine := NewEngine(&fakeRetriever{err: errors.New("index offline")}, generator, Options{})
		conv := NewConversation()

		assert.Equal(t, FallbackAnswer, engine.Query(ctx, conv, Request{Text: "hello"}))
		assert.Empty(t, generator.prompts)
		assert.Equal(t, 0, conv.Len())
	})

	t.Run("Model failure falls back", func(t *testing.T) {
		engine := NewEngine(&fakeRetriever{units: units}, &fakeGenerator{err: errors.New("quota")}, Options{})
		conv := NewConversation()

		assert.Equal(t, FallbackAnswer, engine.Query(ctx, conv, Request{Text: "hello"}))
		assert.Equal(t, 0, conv.Len())
	})

	t.Run("Empty question falls back", func(t *testing.T) {
		retriever := &fakeRetriever{}
		engine := NewEngine(retriever, &fakeGenerator{answer: "x"}, Options{})

		assert.Equal(t, FallbackAnswer, engine.Query(ctx, NewConversation(), Request{Text: " "}))
		assert.Empty(t, retriever.lastQuery)
	})

	t.Run("Route filter is forwarded", func(t *testing.T) {
		retriever := &fakeRetriever{}
		engine := NewEngine(retriever, &fakeGenerator{answer: "x"}, Options{K: 3, FetchK: 6})
		key := models.RouteKey{Origin: "A", Destination: "B", Mode: models.ModeBus}

		engine.Query(ctx, NewConversation(), Request{Text: "q", Route: &key})
		assert.Equal(t, &key, retriever.lastOpts.Route)
		assert.Equal(t, 3, retriever.lastOpts.K)
	})

	t.Run("Works end to end with memory index", func(t *testing.T) {
		idx := knowledge.NewMemoryIndex(knowledge.NewHashEmbedder(256))
		store := knowledge.NewStore(idx)
		_, err := store.IngestEstimatedInfo(ctx, "Rome", "Baltimore", models.ModeAirplane, 6800, 36771)
		require.NoError(t, err)

		generator := &fakeGenerator{answer: "Fly."}
		engine := NewEngine(idx, generator, Options{})
		assert.Equal(t, "Fly.", engine.Query(ctx, NewConversation(), Request{Text: "How long is the flight from Rome?"}))
		assert.Contains(t, generator.prompts[0], "Air travel information")
	})
}

func TestSessionStore(t *testing.T) {
	t.Run("Sessions are isolated", func(t *testing.T) {
		store := NewSessionStore(0)
		a := store.Get("")
		b := store.Get("")
		assert.NotEqual(t, a.ID, b.ID)

		a.Append("q", "a")
		assert.Equal(t, 1, store.Get(a.ID).Len())
		assert.Equal(t, 0, store.Get(b.ID).Len())
	})

	t.Run("Unknown id gets a generated one", func(t *testing.T) {
		store := NewSessionStore(0)
		conv := store.Get("client-chosen")
		assert.NotEqual(t, "client-chosen", conv.ID)
		assert.NotEmpty(t, conv.ID)
		assert.Same(t, conv, store.Get(conv.ID))

		again := store.Get("client-chosen")
		assert.NotSame(t, conv, again)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("Known id cannot be taken over by guessing", func(t *testing.T) {
		store := NewSessionStore(0)
		victim := store.Get("")
		victim.Append("where do I live?", "Rome")

		other := store.Get(victim.ID + "x")
		assert.NotEqual(t, victim.ID, other.ID)
		assert.Equal(t, 0, other.Len())
	})

	t.Run("Delete", func(t *testing.T) {
		store := NewSessionStore(0)
		conv := store.Get("")
		assert.True(t, store.Delete(conv.ID))
		assert.False(t, store.Delete(conv.ID))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("Prune idle sessions", func(t *testing.T) {
		store := NewSessionStore(time.Minute)
		stale := store.Get("")
		stale.touch(time.Now().Add(-2 * time.Minute))
		fresh := store.Get("")

		assert.Equal(t, 1, store.Prune())
		assert.Equal(t, 1, store.Len())
		assert.Same(t, fresh, store.Get(fresh.ID))
	})

	t.Run("Pruned id is not revived", func(t *testing.T) {
		store := NewSessionStore(time.Minute)
		stale := store.Get("")
		stale.touch(time.Now().Add(-2 * time.Minute))
		require.Equal(t, 1, store.Prune())

		assert.NotEqual(t, stale.ID, store.Get(stale.ID).ID)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("Zero TTL never prunes", func(t *testing.T) {
		store := NewSessionStore(0)
		store.Get("").touch(time.Now().Add(-time.Hour))
		assert.Equal(t, 0, store.Prune())
	})
}
