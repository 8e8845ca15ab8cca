package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"google.golang.org/grpc/codes"
)

type latency struct {
	Min float64 `json:"min"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latency          `json:"latency_ms"`
}

type report struct {
	StartedAt time.Time             `json:"started_at"`
	Seconds   float64               `json:"duration_seconds"`
	Scenarios int64                 `json:"scenarios"`
	Failed    int64                 `json:"failed_scenarios"`
	ErrorRate float64               `json:"error_rate"`
	RPS       float64               `json:"scenarios_per_second"`
	LatencyMs latency               `json:"scenario_latency_ms"`
	Steps     map[string]stepReport `json:"steps"`
}

// samples — наблюдения одного шага.
type samples struct {
	codes map[codes.Code]int64
	ms    []float64
}

func (s *samples) report() stepReport {
	out := stepReport{
		Calls:     int64(len(s.ms)),
		Codes:     make(map[string]int64, len(s.codes)),
		LatencyMs: summarize(s.ms),
	}
	for code, n := range s.codes {
		out.Codes[code.String()] = n
		if code != codes.OK {
			out.Failed += n
		}
	}
	out.ErrorRate = share(out.Failed, out.Calls)
	return out
}

// recorder собирает длительности и коды ответов по шагам; безопасен для горутин.
type recorder struct {
	mu    sync.Mutex
	steps map[string]*samples
}

func newRecorder() *recorder {
	return &recorder{steps: make(map[string]*samples)}
}

func (r *recorder) observe(step string, took time.Duration, code codes.Code) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.steps[step]
	if s == nil {
		s = &samples{codes: make(map[codes.Code]int64)}
		r.steps[step] = s
	}
	s.codes[code]++
	s.ms = append(s.ms, float64(took.Microseconds())/1000)
}

func (r *recorder) step(name string) (stepReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.steps[name]
	if !ok {
		return stepReport{}, false
	}
	return s.report(), true
}

func (r *recorder) report(started time.Time, elapsed time.Duration) report {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := report{
		StartedAt: started.UTC(),
		Seconds:   elapsed.Seconds(),
		Steps:     make(map[string]stepReport, len(r.steps)),
	}
	for name, s := range r.steps {
		out.Steps[name] = s.report()
	}
	if total, ok := out.Steps[stepScenario]; ok {
		out.Scenarios = total.Calls
		out.Failed = total.Failed
		out.ErrorRate = total.ErrorRate
		out.LatencyMs = total.LatencyMs
	}
	if elapsed > 0 {
		out.RPS = float64(out.Scenarios) / elapsed.Seconds()
	}
	return out
}

func (rep report) print(w io.Writer, s settings) {
	fmt.Fprintf(w, "loadtest %s against %s (%s)\n", s.scenario, s.addr, target(s))
	fmt.Fprintf(w, "scenarios=%d failed=%d error_rate=%.4f elapsed=%.2fs rps=%.2f\n",
		rep.Scenarios, rep.Failed, rep.ErrorRate, rep.Seconds, rep.RPS)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tCALLS\tFAILED\tP50 ms\tP95 ms\tP99 ms\tMAX ms")
	names := make([]string, 0, len(rep.Steps))
	for name := range rep.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := rep.Steps[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			name, st.Calls, st.Failed, st.LatencyMs.P50, st.LatencyMs.P95, st.LatencyMs.P99, st.LatencyMs.Max)
	}
	_ = tw.Flush()
}

// writeFile пишет отчёт JSON; путь должен указывать на файл внутри рабочего каталога.
func (rep report) writeFile(path string) error {
	clean := filepath.Clean(path)
	if clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("report path must name a file")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("report path escapes the working directory: %s", path)
	}

	f, err := os.Create(clean)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func target(s settings) string {
	switch {
	case s.runFor <= 0:
		return fmt.Sprintf("count:%d", s.iterations)
	case s.capped:
		return fmt.Sprintf("duration:%s,max-total:%d", s.runFor, s.iterations)
	default:
		return fmt.Sprintf("duration:%s", s.runFor)
	}
}

func summarize(ms []float64) latency {
	if len(ms) == 0 {
		return latency{}
	}
	sorted := append([]float64(nil), ms...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return latency{
		Min: sorted[0],
		Avg: sum / float64(len(sorted)),
		P50: quantile(sorted, 0.50),
		P95: quantile(sorted, 0.95),
		P99: quantile(sorted, 0.99),
		Max: sorted[len(sorted)-1],
	}
}

// quantile интерполирует линейно между соседними рангами отсортированной выборки.
func quantile(sorted []float64, q float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(rank)), int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

func share(part, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}
