package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jengzang/trajectory-prep/internal/models"
	"github.com/jengzang/trajectory-prep/internal/reader"
	"github.com/jengzang/trajectory-prep/internal/stats"
	"github.com/jengzang/trajectory-prep/internal/trajectory"
)

// ProgressFunc is called after each source with the running totals
type ProgressFunc func(processed, failed, total int)

// Result is the concatenated output of all sources
type Result struct {
	Rows    []models.TrainingRow
	Reports []models.SourceReport // One per source, in input order
}

// ProblemSources returns the identifiers of sources that were skipped
func (r *Result) ProblemSources() []string {
	var problems []string
	for _, s := range r.Reports {
		if s.Failed() {
			problems = append(problems, s.Source)
		}
	}
	return problems
}

// Processor turns raw sources into training rows
type Processor struct {
	reader    *reader.Reader
	segmenter *trajectory.Segmenter
	builder   *trajectory.WindowBuilder
	workers   int

	// Progress, when set, is called after every source
	Progress ProgressFunc
}

// NewProcessor creates a processor. Workers below 1 process sources one at a time.
func NewProcessor(thresholds trajectory.Thresholds, params models.WindowParams, workers int) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		reader:    reader.NewReader(),
		segmenter: trajectory.NewSegmenter(thresholds),
		builder:   trajectory.NewWindowBuilder(params),
		workers:   workers,
	}
}

type sourceOutput struct {
	rows   []models.TrainingRow
	report models.SourceReport
}

// Process reads, segments and windows every source. Sources that cannot be
// read are reported and skipped; a malformed record reaching segmentation
// fails the whole run. Rows are concatenated in source order regardless of
// the number of workers.
func (p *Processor) Process(ctx context.Context, sources []models.Source) (*Result, error) {
	outputs := make([]sourceOutput, len(sources))

	var mu sync.Mutex
	processed, failed := 0, 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, source := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			out, err := p.processSource(source)
			if err != nil {
				return err
			}
			outputs[i] = out

			// reported under the lock so totals arrive in increasing order
			mu.Lock()
			defer mu.Unlock()
			processed++
			if out.report.Failed() {
				failed++
			}
			if p.Progress != nil {
				p.Progress(processed, failed, len(sources))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Reports: make([]models.SourceReport, len(outputs))}
	for i, out := range outputs {
		result.Rows = append(result.Rows, out.rows...)
		result.Reports[i] = out.report
	}

	log.Printf("[Pipeline] Processed %d sources: %d rows, %d problem sources",
		len(sources), len(result.Rows), len(result.ProblemSources()))

	return result, nil
}

func (p *Processor) processSource(source models.Source) (sourceOutput, error) {
	report := models.SourceReport{Source: source.Name}

	if source.Err != nil {
		log.Printf("[Pipeline] Skipping %s: %v", source.Name, source.Err)
		report.Error = source.Err.Error()
		return sourceOutput{report: report}, nil
	}

	parsed, err := p.reader.ReadFile(source)
	if err != nil {
		log.Printf("[Pipeline] Skipping %s: %v", source.Name, err)
		report.Error = err.Error()
		return sourceOutput{report: report}, nil
	}
	report.Records = len(parsed.Records)
	report.Skipped = parsed.Skipped

	labeled, err := p.segmenter.Segment(parsed.Records)
	if err != nil {
		return sourceOutput{}, fmt.Errorf("failed to segment %s: %w", source.Name, err)
	}

	rows := p.builder.Build(labeled)

	summaries := trajectory.Summarize(labeled)
	for i := range summaries {
		summaries[i].Source = source.Name
	}
	report.Trajectories = len(summaries)
	report.PointCounts = trajectory.PointCounts(summaries)
	report.Summaries = summaries
	report.Rows = len(rows)
	if len(summaries) > 0 {
		ps := stats.Percentiles(stats.Ints(report.PointCounts), []float64{50, 90})
		report.MedianPoints, report.P90Points = ps[0], ps[1]
	}

	geometry := trajectory.Aggregate(summaries)
	report.MeanDuration = geometry.MeanDuration
	report.MeanPathLength = geometry.MeanPathLength
	report.MeanTortuosity = geometry.MeanTortuosity
	report.MeanGyration = geometry.MeanGyration
	report.MeanConsistency = geometry.MeanConsistency

	return sourceOutput{rows: rows, report: report}, nil
}
