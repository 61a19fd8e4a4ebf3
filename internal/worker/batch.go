package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/avetisov/stratus/internal/model"
)

// Reporter produces one reconciled report for a location.
type Reporter interface {
	Report(ctx context.Context, location, question string) (*model.Report, error)
}

// ReportJob reconciles a single location.
type ReportJob struct {
	Location string
	Reporter Reporter
}

// Execute runs the job.
func (j *ReportJob) Execute(ctx context.Context) Result {
	report, err := j.Reporter.Report(ctx, j.Location, "")
	return &ReportResult{
		Location: j.Location,
		Report:   report,
		Error:    err,
	}
}

// ReportResult is the outcome for one location.
type ReportResult struct {
	Location string
	Report   *model.Report
	Error    error
}

// GetError returns the job error, if any.
func (r *ReportResult) GetError() error {
	return r.Error
}

// BatchProcessor reconciles many locations concurrently.
type BatchProcessor struct {
	reporter    Reporter
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(reporter Reporter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		reporter:    reporter,
		concurrency: concurrency,
	}
}

// ProcessLocations runs one report per location on the pool.
func (b *BatchProcessor) ProcessLocations(ctx context.Context, locations []string) []*ReportResult {
	if len(locations) == 0 {
		return []*ReportResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, loc := range locations {
		pool.Submit(&ReportJob{
			Location: loc,
			Reporter: b.reporter,
		})
	}

	results := pool.Wait()

	reportResults := make([]*ReportResult, len(results))
	for i, result := range results {
		reportResults[i] = result.(*ReportResult)
	}

	return reportResults
}

// ProcessFile reads locations from a file and processes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ReportResult, error) {
	locations, err := ReadLocationsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}

	return b.ProcessLocations(ctx, locations), nil
}

// ReadLocationsFromFile reads locations from a file, one per line. Empty
// lines, comments, and duplicates are skipped.
func ReadLocationsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var locations []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			locations = append(locations, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return locations, nil
}
