package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/passbi/passbi_planner/internal/config"
	"github.com/passbi/passbi_planner/internal/db"
	"github.com/passbi/passbi_planner/internal/geocode"
	"github.com/passbi/passbi_planner/internal/knowledge"
	"github.com/passbi/passbi_planner/internal/llm"
	"github.com/passbi/passbi_planner/internal/models"
	"github.com/passbi/passbi_planner/internal/provider"
	"github.com/passbi/passbi_planner/internal/routing"
	"gopkg.in/yaml.v3"
)

// pair is one origin/destination to plan
type pair struct {
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`
}

// pairsFile is the YAML form of a pairs file
type pairsFile struct {
	Pairs []pair `yaml:"pairs"`
}

func main() {
	// Command-line flags
	pairsPath := flag.String("pairs", "", "CSV (origin,destination rows) or YAML pairs file")
	origin := flag.String("origin", "", "Single origin (with --destination)")
	destination := flag.String("destination", "", "Single destination (with --origin)")
	modesFlag := flag.String("modes", "", "Comma-separated modes to ingest (default: all)")
	dryRun := flag.Bool("dry-run", false, "Plan and print without storing knowledge")

	flag.Parse()
	config.InitLogging()

	pairs, err := collectPairs(*pairsPath, *origin, *destination)
	if err != nil || len(pairs) == 0 {
		fmt.Println("Usage: passbi-preload (--pairs=<file.csv|file.yml> | --origin=<place> --destination=<place>) [--modes=car,bus] [--dry-run]")
		flag.PrintDefaults()
		if err != nil {
			log.Printf("Error: %v", err)
		}
		os.Exit(1)
	}

	modes, err := parseModes(*modesFlag)
	if err != nil {
		log.Fatalf("Invalid --modes: %v", err)
	}

	cfg := config.LoadConfigFromEnv()
	cfg.IndexBackend = config.IndexPostgres
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Println("Starting knowledge preload...")
	log.Printf("Pairs: %d, modes: %v", len(pairs), modes)

	ctx := context.Background()

	gh := provider.NewGraphHopper(cfg.Provider)
	synth := routing.NewSynthesizer(geocode.NewResolver(gh), gh)

	var store *knowledge.Store
	if !*dryRun {
		pool, err := db.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		var embedder knowledge.Embedder = knowledge.NewHashEmbedder(0)
		if cfg.ModelEnabled() {
			gemini, err := llm.NewGemini(ctx, cfg.LLM)
			if err != nil {
				log.Fatalf("Failed to create Gemini client: %v", err)
			}
			embedder = gemini
		} else {
			log.Println("⚠ GOOGLE_API_KEY not set: storing local embeddings, only servers without a key will retrieve them")
		}

		space := embedder.Space()
		if err := db.EnsureSchema(ctx, pool, space.Dim); err != nil {
			log.Fatalf("Failed to prepare schema: %v", err)
		}
		log.Printf("Embedding space: %s (%d dims)", space.Name, space.Dim)

		store = knowledge.NewStore(knowledge.NewPostgresIndex(pool, embedder))
	}

	start := time.Now()
	failed := 0
	units := 0
	for i, p := range pairs {
		log.Printf("Step %d/%d: %s -> %s", i+1, len(pairs), p.Origin, p.Destination)

		n, err := preloadPair(ctx, synth, store, p, modes)
		if err != nil {
			log.Printf("  Failed: %v", err)
			failed++
			continue
		}
		units += n
	}

	log.Printf("Preload completed in %s: %d units stored, %d/%d pairs failed",
		time.Since(start).Round(time.Millisecond), units, failed, len(pairs))
	if failed == len(pairs) {
		os.Exit(1)
	}
}

func preloadPair(ctx context.Context, synth *routing.Synthesizer, store *knowledge.Store, p pair, modes []models.Mode) (int, error) {
	plan, err := synth.PlanAll(ctx, p.Origin, p.Destination)
	if err != nil {
		return 0, err
	}
	if len(plan.Unavailable) > 0 {
		log.Printf("  Unavailable: %v", plan.Unavailable)
	}

	total := 0
	for _, mode := range modes {
		r, ok := plan.Routes[mode]
		if !ok {
			continue
		}
		log.Printf("  %-8s %s, %s", mode, knowledge.FormatDistance(r.DistanceKm), knowledge.FormatDuration(r.DurationSeconds))

		if store == nil {
			continue
		}
		n, err := store.Ingest(ctx, r)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// collectPairs reads pairs from a CSV file and/or the single-pair flags
func collectPairs(path, origin, destination string) ([]pair, error) {
	var pairs []pair

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open pairs file: %w", err)
		}
		defer f.Close()

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			pairs, err = readYAMLPairs(f)
		default:
			pairs, err = readPairs(f)
		}
		if err != nil {
			return nil, err
		}
	}

	if origin != "" || destination != "" {
		if origin == "" || destination == "" {
			return nil, errors.New("--origin and --destination must be given together")
		}
		pairs = append(pairs, pair{Origin: origin, Destination: destination})
	}

	return pairs, nil
}

// readPairs parses origin,destination rows. Blank rows, rows starting with
// '#' and an "origin,destination" header are skipped.
func readPairs(r io.Reader) ([]pair, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var pairs []pair
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pairs: %w", err)
		}
		if len(record) != 2 {
			return nil, fmt.Errorf("line %d: expected origin,destination", line)
		}

		o, d := strings.TrimSpace(record[0]), strings.TrimSpace(record[1])
		if strings.EqualFold(o, "origin") && strings.EqualFold(d, "destination") {
			continue
		}
		if o == "" || d == "" {
			return nil, fmt.Errorf("line %d: origin and destination are required", line)
		}
		pairs = append(pairs, pair{Origin: o, Destination: d})
	}
	return pairs, nil
}

// readYAMLPairs parses a document with a top-level pairs list
func readYAMLPairs(r io.Reader) ([]pair, error) {
	var doc pairsFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}

	pairs := make([]pair, 0, len(doc.Pairs))
	for i, p := range doc.Pairs {
		p.Origin, p.Destination = strings.TrimSpace(p.Origin), strings.TrimSpace(p.Destination)
		if p.Origin == "" || p.Destination == "" {
			return nil, fmt.Errorf("pair %d: origin and destination are required", i+1)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// parseModes parses a comma-separated mode list; empty means every mode
func parseModes(s string) ([]models.Mode, error) {
	if strings.TrimSpace(s) == "" {
		return models.AllModes(), nil
	}

	var modes []models.Mode
	for _, part := range strings.Split(s, ",") {
		m, ok := models.LookupMode(part)
		if !ok {
			return nil, fmt.Errorf("unknown mode %q", part)
		}
		modes = append(modes, m)
	}
	return modes, nil
}
