// Package identify is the engine's single entry point: it wires candidate
// generation, parallel per-modality scoring, quality weighting, fusion, and
// evidence-graph construction into one deterministic run.
//
// Scoring fans out over the candidate-by-modality cross product on a bounded
// worker pool; every worker writes into its own pre-assigned slot, and the
// reduction walks candidates in label order and modalities in name order, so
// the ranked output is bit-identical regardless of pool size or completion
// order.
package identify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-specid/candidate"
	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/fuse"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/score"
	"github.com/cwbudde/algo-specid/template"
)

// Errors returned by Identify before any scoring starts.
var (
	ErrNilRubric   = errors.New("identify: rubric is required")
	ErrNilFeatures = errors.New("identify: feature set is required")
	ErrNilRegistry = errors.New("identify: template registry is required")
)

// ReasonCode explains a run's outcome.
type ReasonCode string

const (
	// ReasonScored means candidates were scored and ranked normally.
	ReasonScored ReasonCode = "scored"

	// ReasonNoCandidates means the generator produced an empty candidate
	// set; the run terminated cleanly with no hypotheses.
	ReasonNoCandidates ReasonCode = "no-candidates"
)

// Registry supplies the reference templates candidates are scored against.
// *template.Library satisfies it.
type Registry interface {
	Expectations(label string, m feature.Modality) (*template.ExpectationSet, bool)
	DenseTemplate(label string, m feature.Modality) (*template.Dense, bool)
}

// Input bundles everything one identification run consumes. All fields are
// read-only for the run's duration.
type Input struct {
	Session string
	Dataset string

	Features *feature.Set
	Segments map[feature.Modality]*template.Segment

	Catalog *candidate.Catalog
	Gates   candidate.Gates

	Templates Registry
	Rubric    *rubric.Rubric

	// Seed is recorded in the result and its exported documents so replays
	// carry identical identity. The scoring path itself is deterministic
	// and consumes no randomness.
	Seed int64
}

// Result is the ordered outcome of one run.
type Result struct {
	Session       string
	Dataset       string
	RubricVersion string
	Seed          int64
	Reason        ReasonCode

	Hypotheses []*fuse.Hypothesis
	Warnings   []feature.Warning
}

// Option configures a run.
type Option func(*config)

type config struct {
	workers int
	logger  *slog.Logger
}

// WithWorkers sets the scoring worker-pool size. Values below one fall back
// to the default (available cores).
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithLogger sets the run logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func applyOptions(opts []Option) config {
	cfg := config{
		workers: runtime.NumCPU(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// task is one (candidate, modality) scoring unit. Each task owns one result
// slot, so workers never contend.
type task struct {
	candIdx int
	modIdx  int
	entry   candidate.Entry
	mod     feature.Modality
	cfg     rubric.Modality
}

// Identify runs the full pipeline and returns ranked hypotheses with
// confidence tiers. Configuration problems fail before any scoring starts;
// input degradations (rejected features, missing QC) surface as warnings on
// the result, never as errors.
func Identify(ctx context.Context, in Input, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)

	if in.Rubric == nil {
		return nil, ErrNilRubric
	}
	if err := in.Rubric.Validate(); err != nil {
		return nil, err
	}
	if in.Features == nil {
		return nil, ErrNilFeatures
	}
	if in.Templates == nil {
		return nil, ErrNilRegistry
	}

	res := &Result{
		Session:       in.Session,
		Dataset:       in.Dataset,
		RubricVersion: in.Rubric.Version,
		Seed:          in.Seed,
		Reason:        ReasonScored,
		Warnings:      in.Features.Warnings(),
	}

	entries, err := candidate.Generate(in.Catalog, in.Gates)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		cfg.logger.Info("no candidates available", "session", in.Session, "dataset", in.Dataset)
		res.Reason = ReasonNoCandidates
		return res, nil
	}

	mods := sortedModalities(in.Rubric)
	qualities, qcWarnings := modalityQualities(in, mods)
	res.Warnings = append(res.Warnings, qcWarnings...)

	cfg.logger.Info("scoring candidates",
		"candidates", len(entries), "modalities", len(mods), "workers", cfg.workers)

	tasks := make([]task, 0, len(entries)*len(mods))
	for ci, entry := range entries {
		for mi, m := range mods {
			tasks = append(tasks, task{
				candIdx: ci, modIdx: mi,
				entry: entry, mod: m,
				cfg: in.Rubric.Modalities[m],
			})
		}
	}

	// Fixed result slots: slot (ci, mi) is written by exactly one worker.
	slots := make([][]*score.Result, len(entries))
	for i := range slots {
		slots[i] = make([]*score.Result, len(mods))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for _, t := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[t.candIdx][t.modIdx] = scoreTask(in, t, qualities[t.mod])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hyps := make([]*fuse.Hypothesis, 0, len(entries))
	for ci, entry := range entries {
		// Cooperative cancellation checkpoint between candidates.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var results []score.Result
		for _, slot := range slots[ci] {
			if slot != nil {
				results = append(results, *slot)
			}
		}

		h := fuse.Fuse(entry, results, in.Rubric)
		h.Warnings = res.Warnings
		h.Graph = buildGraph(in, h)
		cfg.logger.Debug("fused candidate",
			"label", h.Label, "log_posterior", h.LogPosterior, "g", h.G)
		hyps = append(hyps, h)
	}

	fuse.Rank(hyps, in.Rubric)
	fuse.Classify(hyps, in.Rubric)
	res.Hypotheses = hyps

	cfg.logger.Info("run complete",
		"top", hyps[0].Label, "tier", string(hyps[0].Tier), "g", hyps[0].G)
	return res, nil
}

// scoreTask scores one (candidate, modality) pair. Returns nil when the
// registry has no template for the pair, which simply leaves the modality
// out of that candidate's fusion.
func scoreTask(in Input, t task, quality float64) *score.Result {
	qc, _ := in.Features.QC(t.mod)

	switch t.cfg.Mode {
	case rubric.ModeDense:
		tpl, ok := in.Templates.DenseTemplate(t.entry.Label, t.mod)
		if !ok {
			return nil
		}
		seg, ok := in.Segments[t.mod]
		if !ok {
			return nil
		}
		r := score.Dense(seg, tpl, qc, in.Rubric)
		r.Quality = quality
		return &r

	default:
		set, ok := in.Templates.Expectations(t.entry.Label, t.mod)
		if !ok {
			return nil
		}
		r := score.Sparse(in.Features.ByModality(t.mod), qc, set, t.cfg)
		r.Quality = quality
		return &r
	}
}

// sortedModalities returns the rubric's modalities in name order, the fixed
// iteration sequence used everywhere in the run.
func sortedModalities(r *rubric.Rubric) []feature.Modality {
	mods := make([]feature.Modality, 0, len(r.Modalities))
	for m := range r.Modalities {
		mods = append(mods, m)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
	return mods
}

// modalityQualities derives the quality multiplier per modality once per
// run. A modality without QC metrics scores with a neutral multiplier and a
// warning, per the graceful-degradation policy.
func modalityQualities(in Input, mods []feature.Modality) (map[feature.Modality]float64, []feature.Warning) {
	out := make(map[feature.Modality]float64, len(mods))
	var warnings []feature.Warning

	for _, m := range mods {
		mc := in.Rubric.Modalities[m]
		qc, ok := in.Features.QC(m)
		if !ok {
			out[m] = 1.0
			warnings = append(warnings, feature.Warning{
				Modality: m,
				Field:    "qc",
				Reason:   fmt.Sprintf("no QC metrics supplied for modality %q; quality weight defaults to 1.0", m),
			})
			continue
		}
		out[m] = score.Quality(qc, mc.Quality)
	}
	return out, warnings
}
