package eval

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
)

// DefaultPause spaces requests so a run stays under provider rate limits.
const DefaultPause = 200 * time.Millisecond

// Asker sends one question to the system under test.
type Asker interface {
	Ask(ctx context.Context, question string) (*Answer, error)
}

// Result is the outcome of one case.
type Result struct {
	Case    Case
	Reply   string
	Latency time.Duration
	Passed  bool
	Err     error
}

// Report summarizes a run.
type Report struct {
	Results []Result
	Passed  int
	P95     time.Duration
}

// Total is the number of cases run.
func (r *Report) Total() int {
	return len(r.Results)
}

// Failed reports whether any case failed.
func (r *Report) Failed() bool {
	return r.Passed < r.Total()
}

// Runner asks every case in order and writes one line per case to out.
type Runner struct {
	asker Asker
	out   io.Writer
	pause time.Duration
}

// NewRunner creates a runner. A negative pause disables the delay between cases.
func NewRunner(asker Asker, out io.Writer, pause time.Duration) *Runner {
	return &Runner{asker: asker, out: out, pause: max(pause, 0)}
}

// Run executes the cases sequentially. A failed request marks its case as failed and the run
// continues; cancelling ctx stops the run and returns the partial report with ctx's error.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(cases))}
	latencies := make([]time.Duration, 0, len(cases))

	for i, c := range cases {
		if i > 0 && r.pause > 0 {
			select {
			case <-ctx.Done():
				return report, fmt.Errorf("eval interrupted: %w", ctx.Err())
			case <-time.After(r.pause):
			}
		}

		res := r.runCase(ctx, c)
		if ctx.Err() != nil {
			return report, fmt.Errorf("eval interrupted: %w", ctx.Err())
		}

		report.Results = append(report.Results, res)
		latencies = append(latencies, res.Latency)

		if res.Passed {
			report.Passed++
		}

		r.printResult(res)
	}

	report.P95 = Percentile(latencies, 0.95)

	fmt.Fprintf(r.out, "\nScore: %d/%d  | p95: %.2fs\n", report.Passed, report.Total(), report.P95.Seconds())

	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) Result {
	start := time.Now()

	answer, err := r.asker.Ask(ctx, c.Question)
	if err != nil {
		return Result{Case: c, Latency: time.Since(start), Err: err}
	}

	return Result{
		Case:    c,
		Reply:   answer.Reply,
		Latency: answer.Latency,
		Passed:  Passes(answer.Reply, c.Expect),
	}
}

func (r *Runner) printResult(res Result) {
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}

	fmt.Fprintf(r.out, "%s %s | %.2fs\n", status, res.Case.Question, res.Latency.Seconds())

	if res.Passed {
		return
	}

	fmt.Fprintf(r.out, "   expect: %s\n", strings.Join(res.Case.Expect, ", "))

	if res.Err != nil {
		fmt.Fprintf(r.out, "   error : %v\n", res.Err)
	} else {
		fmt.Fprintf(r.out, "   reply : %s\n", res.Reply)
	}
}

// Percentile returns the nearest-rank-below value at p (0..1): index floor(p*(n-1)) of the
// sorted latencies. Zero for no samples.
func Percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	idx := int(p * float64(len(sorted)-1))
	idx = min(max(idx, 0), len(sorted)-1)

	return sorted[idx]
}
