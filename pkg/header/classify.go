// Package header implements the Header Classifier (spec.md §4.H): batched,
// redundant AI candidate detection over the reduced element stream, with a
// deterministic numeric safety net as backstop.
package header

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/copperdogma/gamebook-pipeline/pkg/llm"
	"github.com/copperdogma/gamebook-pipeline/pkg/model"
)

const (
	defaultBatchSize   = 75
	defaultOverlap     = 5
	defaultNMax        = 400
	defaultConcurrency = 4
)

// Options configures a classification run. Zero values fall back to the
// spec's defaults.
type Options struct {
	BatchSize   int
	Overlap     int
	NMax        int
	Concurrency int
	Budget      *llm.Budget
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.Overlap <= 0 {
		o.Overlap = defaultOverlap
	}
	if o.NMax <= 0 {
		o.NMax = defaultNMax
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
	return o
}

// Classify runs the forward and backward passes over elements, aggregates
// per-seq verdicts, applies the numeric safety net, and merges original
// text back onto every output row. Every input element yields exactly one
// output row, per the stage's contract. A pass whose AI calls fail is logged
// and contributes no verdicts; the numeric safety net still runs.
func Classify(ctx context.Context, client llm.Client, elements []model.ElementCore, opts Options) ([]model.HeaderCandidate, error) {
	opts = opts.withDefaults()
	if opts.Budget != nil {
		client = &llm.BoundedClient{Client: client, Budget: opts.Budget}
	}

	forwardBatches := partition(elements, opts.BatchSize, opts.Overlap)
	backwardElements := reversed(elements)
	backwardBatches := partition(backwardElements, opts.BatchSize, opts.Overlap)

	forward, err := runBatches(ctx, client, forwardBatches, opts)
	if err != nil {
		slog.Warn("header: forward pass failed; continuing without its verdicts", "error", err)
		forward = nil
	}
	backward, err := runBatches(ctx, client, backwardBatches, opts)
	if err != nil {
		slog.Warn("header: backward pass failed; continuing without its verdicts", "error", err)
		backward = nil
	}

	aggregated := aggregate(forward, backward)

	candidates := make([]model.HeaderCandidate, 0, len(elements))
	bySeq := make(map[int]*model.HeaderCandidate, len(elements))
	for _, e := range elements {
		c := model.HeaderCandidate{
			Seq:         e.Seq,
			Page:        e.Page,
			MacroHeader: model.MacroNone,
		}
		if v, ok := aggregated[e.Seq]; ok {
			c.MacroHeader = toMacroHeader(v.MacroHeader)
			c.GameSectionHeader = v.GameSectionHeader
			c.ClaimedSectionNumber = v.ClaimedSectionNumber
			c.Confidence = v.Confidence
		}
		candidates = append(candidates, c)
		bySeq[e.Seq] = &candidates[len(candidates)-1]
	}

	applySafetyNet(candidates, elements, opts.NMax)

	// Merge original element text back onto each candidate for readability,
	// per spec.md §4.H step 5.
	for i := range candidates {
		candidates[i].Text = elements[i].Text
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Seq < candidates[j].Seq })
	return candidates, nil
}

// runBatches dispatches one AI call per batch with bounded concurrency,
// mirroring the reservation-then-release shape of a bounded worker pool:
// a semaphore is acquired before each goroutine starts and released when it
// completes, so at most opts.Concurrency calls are ever in flight.
func runBatches(ctx context.Context, client llm.Client, batches []batch, opts Options) ([]verdict, error) {
	sem := make(chan struct{}, opts.Concurrency)
	results := make([][]verdict, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, b := range batches {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, b batch) {
			defer wg.Done()
			defer func() { <-sem }()

			req := buildRequest(b, opts.NMax)
			resp, err := llm.CallWithRetry(ctx, client, req)
			if err != nil {
				errs[i] = err
				return
			}
			vs, err := parseVerdicts(resp.Content, b)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = vs
		}(i, b)
	}
	wg.Wait()

	var out []verdict
	for i, err := range errs {
		if err != nil {
			return nil, err
		}
		out = append(out, results[i]...)
	}
	return out, nil
}

// aggregate merges forward and backward pass verdicts per seq, keeping the
// higher-confidence positive verdict, per spec.md §4.H step 3.
func aggregate(forward, backward []verdict) map[int]verdict {
	out := make(map[int]verdict)
	merge := func(v verdict) {
		existing, ok := out[v.Seq]
		if !ok {
			out[v.Seq] = v
			return
		}
		if betterVerdict(v, existing) {
			out[v.Seq] = v
		}
	}
	for _, v := range forward {
		merge(v)
	}
	for _, v := range backward {
		merge(v)
	}
	return out
}

// betterVerdict reports whether candidate should replace current: a
// positive verdict always beats a negative one; among two positives (or
// two negatives) the higher confidence wins.
func betterVerdict(candidate, current verdict) bool {
	if candidate.GameSectionHeader != current.GameSectionHeader {
		return candidate.GameSectionHeader
	}
	return candidate.Confidence > current.Confidence
}
