package rank

import (
	"context"
	"fmt"
	"strings"

	"github.com/wisslab/wissrank/pkg/ai"
	"github.com/wisslab/wissrank/pkg/snapshot"

	"golang.org/x/sync/errgroup"
)

// Engine runs one deterministic ranking computation over an immutable
// snapshot. Construction validates the configuration; a misconfigured
// engine is never built.
//
// Run performs all I/O (the embedding calls) in a sequential load phase,
// then executes the three scorers in parallel over the read-only snapshot,
// waits for all of them, and fuses their outputs. Running the engine twice
// on the same snapshot and configuration yields identical output.
type Engine struct {
	cfg      Config
	embedder ai.Embedder
}

// NewEngine creates an engine for the given configuration and embedding
// collaborator. Returns an error wrapping ErrConfiguration when the
// configuration is invalid or the embedder is missing.
func NewEngine(cfg Config, embedder ai.Embedder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrConfiguration)
	}
	return &Engine{cfg: cfg, embedder: embedder}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run executes one ranking run over the snapshot.
func (e *Engine) Run(ctx context.Context, snap *snapshot.Snapshot) (*Result, error) {
	diag := Diagnostics{}

	persons := snap.Persons()
	personIDs := make([]string, len(persons))
	for i, p := range persons {
		personIDs[i] = p.ID
	}

	// Load phase: aggregate texts, resolve embeddings, build the graph.
	// All I/O happens here; the scoring phase below is pure computation.
	texts := aggregateWorkTexts(snap)

	concept, personVecs, err := e.resolveEmbeddings(ctx, personIDs, texts)
	if err != nil {
		return nil, err
	}

	graph := buildAuthorshipGraph(snap)

	// Scoring phase: the three scorers share the read-only snapshot and
	// each write to their own map. Fusion is a strict barrier behind Wait.
	semScores := make(map[string]SignalScore, len(persons))
	graphScores := make(map[string]SignalScore, len(persons))
	tempScores := make(map[string]SignalScore, len(persons))
	var centrality centralityResult

	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		for _, pid := range personIDs {
			semScores[pid] = semanticScore(texts[pid], personVecs[pid], concept)
		}
		return nil
	})
	eg.Go(func() error {
		centrality = computeCentrality(graph, e.cfg.MaxIterations, e.cfg.Tolerance)
		for _, pid := range personIDs {
			raw, ok := centrality.scores[pid]
			if !ok {
				graphScores[pid] = invalidScore()
				continue
			}
			graphScores[pid] = validScore(raw)
		}
		return nil
	})
	eg.Go(func() error {
		for _, p := range persons {
			tempScores[p.ID] = temporalScore(p, e.cfg.EraStart, e.cfg.EraEnd, e.cfg.UnknownDatePenalty)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	diag.CentralityIterations = centrality.iterations
	if !centrality.converged {
		diag.ApproximateCentrality = true
		diag.warnf("centrality hit the iteration cap of %d without reaching tolerance %g, using last iterate",
			e.cfg.MaxIterations, e.cfg.Tolerance)
	}

	signals := make(map[string]personSignals, len(persons))
	for _, pid := range personIDs {
		signals[pid] = personSignals{
			semantic: semScores[pid],
			graph:    graphScores[pid],
			temporal: tempScores[pid],
			rawGraph: centrality.scores[pid],
		}
	}

	entries := fuseScores(personIDs, signals, e.cfg.Weights, e.cfg.TieEpsilon, &diag)

	return &Result{Entries: entries, Diagnostics: diag}, nil
}

// aggregateWorkTexts concatenates the title and description of every work
// attributed to a person, in work id order, keyed by person id.
func aggregateWorkTexts(snap *snapshot.Snapshot) map[string]string {
	parts := make(map[string][]string)
	for _, w := range snap.Works() {
		text := strings.TrimSpace(strings.TrimSpace(w.Title) + ". " + strings.TrimSpace(w.Description))
		text = strings.TrimPrefix(text, ".")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		for _, a := range w.Attributions {
			parts[a.PersonID] = append(parts[a.PersonID], text)
		}
	}

	out := make(map[string]string, len(parts))
	for pid, ps := range parts {
		out[pid] = strings.Join(ps, "\n")
	}
	return out
}

// resolveEmbeddings produces the concept vector and one embedding per person
// with non-empty aggregated text, batched through the embedder. A vector of
// the wrong dimensionality is a configuration fault and aborts the run
// before any scoring starts.
func (e *Engine) resolveEmbeddings(ctx context.Context, personIDs []string, texts map[string]string) ([]float32, map[string][]float32, error) {
	concept := e.cfg.ConceptVector
	if len(concept) == 0 {
		vec, err := e.embedder.GenerateEmbedding(ctx, []byte(e.cfg.ConceptText))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to embed concept text: %w", err)
		}
		concept = vec
	}
	if len(concept) != e.cfg.EmbedDim {
		return nil, nil, fmt.Errorf("%w: concept embedding has dimension %d, want %d",
			ErrConfiguration, len(concept), e.cfg.EmbedDim)
	}

	withText := make([]string, 0, len(personIDs))
	inputs := make([][]byte, 0, len(personIDs))
	for _, pid := range personIDs {
		if strings.TrimSpace(texts[pid]) == "" {
			continue
		}
		withText = append(withText, pid)
		inputs = append(inputs, []byte(texts[pid]))
	}

	personVecs := make(map[string][]float32, len(withText))
	if len(inputs) == 0 {
		return concept, personVecs, nil
	}

	vecs, err := e.embedder.GenerateEmbeddings(ctx, inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to embed person texts: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, nil, fmt.Errorf("embedding count mismatch: got %d want %d", len(vecs), len(inputs))
	}
	for i, pid := range withText {
		if len(vecs[i]) != e.cfg.EmbedDim {
			return nil, nil, fmt.Errorf("%w: embedding for person %s has dimension %d, want %d",
				ErrConfiguration, pid, len(vecs[i]), e.cfg.EmbedDim)
		}
		personVecs[pid] = vecs[i]
	}

	return concept, personVecs, nil
}
