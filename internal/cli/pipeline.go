package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"p3fes-translator/internal/analyzer"
	"p3fes-translator/internal/config"
	"p3fes-translator/internal/extract"
	"p3fes-translator/internal/filewalker"
	"p3fes-translator/internal/ledger"
	"p3fes-translator/internal/memory"
	"p3fes-translator/internal/reinject"
	"p3fes-translator/internal/report"
	"p3fes-translator/internal/sjis"
	"p3fes-translator/internal/textutil"
	"p3fes-translator/internal/tokenguard"
	"p3fes-translator/internal/translator"
	"p3fes-translator/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// pipeline holds the wired components for the translate command. Files are
// processed concurrently; the edits within one file are strictly sequential.
type pipeline struct {
	cfg        *config.Config
	analyzer   *analyzer.Analyzer
	extractor  *extract.Extractor
	guard      *tokenguard.Guard
	translator *translator.Translator
	memory     *memory.Memory
	ledger     *ledger.Ledger
	strategy   reinject.Strategy
	dryRun     bool
	formatHint string
	// root is the scanned game directory; outputDir receives a mirror copy of
	// every reinjected file (empty disables mirroring).
	root      string
	outputDir string

	// apiSem bounds in-flight translation requests across all workers.
	apiSem chan struct{}

	mu    sync.Mutex
	pairs map[string]string
}

func (p *pipeline) run(ctx context.Context, gameDir string) error {
	p.root = gameDir
	if abs, err := filepath.Abs(gameDir); err == nil {
		p.root = abs
	}

	entries, err := filewalker.Walk(gameDir)
	if err != nil {
		return fmt.Errorf("walk game directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", gameDir).Msg("No supported game files found")
		return nil
	}

	log.Info().
		Int("files", len(entries)).
		Str("strategy", p.strategy.String()).
		Bool("dry_run", p.dryRun).
		Msg("Starting translation pipeline")

	progress := mpb.New(mpb.WithWidth(60))
	bar := progress.AddBar(int64(len(entries)),
		mpb.PrependDecorators(
			decor.Name("translating", decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Counters(0, " | %d/%d"),
			decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 6}, decor.WCSyncSpace),
		),
	)

	pool := worker.NewPool[filewalker.Entry, report.Outcome](p.cfg.WorkerCount, p.processFile)
	pool.OnDone = func(worker.Task[filewalker.Entry, report.Outcome]) {
		bar.Increment()
	}

	results := pool.Execute(ctx, entries)

	// Cancellation can leave the bar short of its total.
	bar.SetTotal(int64(len(entries)), true)
	progress.Wait()

	summary := report.NewSummary()
	failed := 0
	for i, t := range results {
		o := resolveOutcome(entries[i], t)
		if o.Err != nil {
			failed++
		}
		summary.Add(o)
	}
	summary.Print(os.Stdout)

	// Persist freshly accepted pairs into the translation memory.
	p.mu.Lock()
	pairs := p.pairs
	p.mu.Unlock()
	if p.memory != nil && !p.dryRun && len(pairs) > 0 {
		if err := p.memory.Store(ctx, pairs, p.cfg.BatchSize); err != nil {
			log.Warn().Err(err).Msg("Failed to store translation memory pairs")
		}
	}

	if p.ledger != nil && !p.dryRun {
		if err := p.ledger.Save(); err != nil {
			log.Warn().Err(err).Msg("Failed to save ledger")
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(entries))
	}
	return nil
}

// resolveOutcome normalizes a pool task into a reportable outcome.
// processFile stamps every outcome with its path, so an empty path means the
// pool never dispatched the task before cancellation; those count as skipped,
// not processed.
func resolveOutcome(entry filewalker.Entry, t worker.Task[filewalker.Entry, report.Outcome]) report.Outcome {
	o := t.Result
	if t.Err != nil && o.Err == nil {
		o.Err = t.Err
	}
	if o.Path == "" {
		o.Path = entry.Path
		if o.Err == nil {
			o.Skipped = "cancelled before dispatch"
		}
	}
	return o
}

// mirrorPath maps a source file into the output directory, preserving its
// location relative to the scanned root.
func (p *pipeline) mirrorPath(path string) string {
	if p.outputDir == "" {
		return ""
	}
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(p.outputDir, rel)
}

// processFile runs the full per-file pipeline: ledger check, extraction,
// classification, span translation, and reinjection. Failures are recorded in
// the outcome so one bad file never aborts the batch.
func (p *pipeline) processFile(ctx context.Context, entry filewalker.Entry) (report.Outcome, error) {
	out := report.Outcome{Path: entry.Path, Strategy: p.strategy.String()}

	if p.ledger != nil {
		modified, err := p.ledger.Modified(entry.Path)
		if err != nil {
			out.Err = fmt.Errorf("ledger check: %w", err)
			return out, nil
		}
		if !modified {
			out.Skipped = "unchanged since last run"
			return out, nil
		}
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		out.Err = fmt.Errorf("read file: %w", err)
		return out, nil
	}

	spans, layout, err := p.extractor.Extract(data, entry.Ext, p.formatHint)
	if err != nil {
		out.Err = err
		return out, nil
	}

	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}
	out.Spans = len(spans)
	out.Classification = p.analyzer.Classify(texts)

	switch out.Classification.Status {
	case analyzer.StatusNoText:
		out.Skipped = "no translatable text"
		return out, nil
	case analyzer.StatusTranslated:
		out.Skipped = "already translated"
		return out, nil
	}

	var edits []reinject.Edit
	for _, span := range spans {
		if p.analyzer.ShouldSkip(span.Text) {
			continue
		}

		masked, tokens := p.guard.Mask(span.Text)
		if tokenguard.OnlyTokens(masked) {
			continue
		}

		p.apiSem <- struct{}{}
		res, terr := p.translator.Translate(ctx, masked, p.cfg.TargetLocale)
		<-p.apiSem

		if res.Degraded {
			log.Warn().
				Err(terr).
				Str("text", textutil.Truncate(span.Text, 30)).
				Msg("Translation degraded, keeping original")
			out.Degraded++
			continue
		}
		if res.UsedCache {
			out.Cached++
		}

		restored, uerr := p.guard.Unmask(res.Text, tokens)
		if uerr != nil {
			log.Warn().
				Err(uerr).
				Str("text", textutil.Truncate(span.Text, 30)).
				Msg("Token restore failed, keeping original")
			out.Degraded++
			continue
		}

		encoded, eerr := sjis.Encode(restored)
		if eerr != nil {
			log.Warn().
				Err(eerr).
				Str("text", textutil.Truncate(restored, 30)).
				Msg("Shift-JIS encode failed, keeping original")
			out.Degraded++
			continue
		}

		edits = append(edits, reinject.Edit{Offset: span.Offset, Old: span.Raw, New: encoded})
		out.Translated++

		if !res.UsedCache {
			p.mu.Lock()
			p.pairs[span.Text] = restored
			p.mu.Unlock()
		}
	}

	if len(edits) == 0 {
		out.Skipped = "no spans survived translation"
		return out, nil
	}

	var res *reinject.Result
	if p.dryRun {
		res, err = reinject.Reinject(data, edits, layout, p.strategy)
	} else {
		res, err = reinject.ReinjectFileMirrored(entry.Path, p.mirrorPath(entry.Path), edits, layout, p.strategy)
	}
	if err != nil {
		var oe *reinject.OffsetError
		if errors.As(err, &oe) {
			out.Err = fmt.Errorf("file left untouched: %w", err)
		} else {
			out.Err = err
		}
		return out, nil
	}

	out.Strategy = res.Applied.String()
	out.Truncations = len(res.Truncations)

	if !p.dryRun && p.ledger != nil {
		if err := p.ledger.Record(entry.Path); err != nil {
			log.Warn().Err(err).Str("file", entry.Path).Msg("Failed to record file in ledger")
		}
	}

	return out, nil
}

// runAnalyze handles the `analyze` command.
func runAnalyze(dir string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	entries, err := filewalker.Walk(dir)
	if err != nil {
		return fmt.Errorf("walk directory: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("dir", dir).Msg("No supported game files found")
		return nil
	}

	an := analyzer.New(cfg.Heuristics)
	extractor := extract.New(an, cfg.Heuristics)

	progress := mpb.New(mpb.WithWidth(60))
	bar := progress.AddBar(int64(len(entries)),
		mpb.PrependDecorators(
			decor.Name("analyzing", decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Counters(0, " | %d/%d"),
		),
	)

	pool := worker.NewPool[filewalker.Entry, report.Outcome](cfg.WorkerCount,
		func(ctx context.Context, entry filewalker.Entry) (report.Outcome, error) {
			out := report.Outcome{Path: entry.Path}

			data, err := os.ReadFile(entry.Path)
			if err != nil {
				out.Err = fmt.Errorf("read file: %w", err)
				return out, nil
			}

			spans, _, err := extractor.Extract(data, entry.Ext, "")
			if err != nil {
				out.Err = err
				return out, nil
			}

			texts := make([]string, len(spans))
			for i, s := range spans {
				texts[i] = s.Text
			}
			out.Spans = len(spans)
			out.Classification = an.Classify(texts)
			return out, nil
		},
	)
	pool.OnDone = func(worker.Task[filewalker.Entry, report.Outcome]) {
		bar.Increment()
	}

	results := pool.Execute(ctx, entries)
	bar.SetTotal(int64(len(entries)), true)
	progress.Wait()

	summary := report.NewSummary()
	for i, t := range results {
		summary.Add(resolveOutcome(entries[i], t))
	}
	summary.PrintClassifications(os.Stdout)

	return ctx.Err()
}

// spanDump is the JSON record written by the extract command.
type spanDump struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Raw    string `json:"raw"`
	Text   string `json:"text"`
}

// runExtract handles the `extract` command.
func runExtract(dir, outDir string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	entries, err := filewalker.Walk(dir)
	if err != nil {
		return fmt.Errorf("walk directory: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	an := analyzer.New(cfg.Heuristics)
	extractor := extract.New(an, cfg.Heuristics)

	dumped := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, err := os.ReadFile(entry.Path)
		if err != nil {
			log.Error().Err(err).Str("file", entry.Path).Msg("Read failed")
			continue
		}

		spans, _, err := extractor.Extract(data, entry.Ext, "")
		if err != nil {
			log.Error().Err(err).Str("file", entry.Path).Msg("Extraction failed")
			continue
		}
		if len(spans) == 0 {
			continue
		}

		dumps := make([]spanDump, len(spans))
		for i, s := range spans {
			dumps[i] = spanDump{
				Offset: s.Offset,
				Length: s.Length(),
				Raw:    hex.EncodeToString(s.Raw),
				Text:   s.Text,
			}
		}

		rel, err := filepath.Rel(dir, entry.Path)
		if err != nil {
			rel = filepath.Base(entry.Path)
		}
		outPath := filepath.Join(outDir, strings.ReplaceAll(rel, string(filepath.Separator), "_")+".spans.json")

		buf, err := json.MarshalIndent(dumps, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal spans: %w", err)
		}
		if err := os.WriteFile(outPath, buf, 0644); err != nil {
			return fmt.Errorf("write span dump: %w", err)
		}
		dumped++
	}

	log.Info().Int("files", dumped).Str("out", outDir).Msg("Span dump complete")
	return nil
}
