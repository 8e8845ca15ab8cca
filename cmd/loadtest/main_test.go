package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/logistics/internal/service/grpc"
	"github.com/vladislavdragonenkov/logistics/internal/storage/memory"
)

type fakeGoodsClient struct {
	mu       sync.Mutex
	calls    []string
	createFn func(context.Context, domain.Good) (domain.Good, error)
	listFn   func(context.Context, domain.Query) (domain.ListResult[domain.Good], error)
	deleteFn func(context.Context, string) (domain.DeleteResult, error)
	patches  []domain.Patch
}

func (f *fakeGoodsClient) track(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, method)
}

func (f *fakeGoodsClient) Create(ctx context.Context, rec domain.Good) (domain.Good, error) {
	f.track("Create")
	if f.createFn == nil {
		return rec, nil
	}
	return f.createFn(ctx, rec)
}

func (f *fakeGoodsClient) List(ctx context.Context, q domain.Query) (domain.ListResult[domain.Good], error) {
	f.track("List")
	if f.listFn == nil {
		return domain.ListResult[domain.Good]{Items: []domain.Good{{}}, TotalCount: 1}, nil
	}
	return f.listFn(ctx, q)
}

func (f *fakeGoodsClient) Update(_ context.Context, key string, patch domain.Patch) (domain.Good, error) {
	f.track("Update")
	f.mu.Lock()
	f.patches = append(f.patches, patch)
	f.mu.Unlock()
	return domain.Good{GoodNumber: key}, nil
}

func (f *fakeGoodsClient) Delete(ctx context.Context, key string) (domain.DeleteResult, error) {
	f.track("Delete")
	if f.deleteFn == nil {
		return domain.Deleted(domain.KindGood, key), nil
	}
	return f.deleteFn(ctx, key)
}

func testRunner(mode scenario) *runner {
	r := newRunner(settings{
		scenario:   mode,
		rpcTimeout: time.Second,
		unit:       "pcs",
		value:      10,
		prefix:     "LOAD",
	}, nil)
	r.runID = "run"
	return r
}

func TestParseScenario(t *testing.T) {
	for _, name := range []string{"create", "create-query", "create-update", " create-update-delete "} {
		got, err := parseScenario(name)
		require.NoError(t, err)
		require.Contains(t, scenarios, got)
	}
	_, err := parseScenario("bad")
	require.ErrorContains(t, err, `unsupported mode "bad"`)
}

func TestParseSettings(t *testing.T) {
	s, err := parseSettings([]string{
		"-addr=127.0.0.1:50051",
		"-mode=create-update",
		"-total=12",
		"-concurrency=3",
		"-connections=2",
		"-timeout=2s",
		"-delete-rate=10",
		"-unit=kg",
		"-value=99.5",
		"-key-prefix=STAGE",
	}, io.Discard)
	require.NoError(t, err)
	require.True(t, s.capped)
	require.Equal(t, scenarioUpdate, s.scenario)
	require.Equal(t, 12, s.iterations)
	require.Equal(t, 3, s.workers)
	require.Equal(t, 2, s.conns)
	require.Equal(t, 2*time.Second, s.rpcTimeout)
	require.Equal(t, 10, s.deletePct)
	require.Equal(t, "kg", s.unit)
	require.Equal(t, 99.5, s.value)
	require.Equal(t, "STAGE", s.prefix)

	s, err = parseSettings([]string{"-duration=3s", "-concurrency=2", "-connections=1"}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, s.runFor)
	require.False(t, s.capped)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "invalid value"},
		{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
		{name: "delete rate", args: []string{"-delete-rate=101"}, wantErr: "delete-rate must be between 0 and 100"},
		{name: "negative value", args: []string{"-value=-1"}, wantErr: "value must be >= 0"},
		{name: "empty unit", args: []string{"-unit= "}, wantErr: "unit is required"},
		{name: "zero total", args: []string{"-total=0"}, wantErr: "total must be > 0"},
		{name: "bad mode", args: []string{"-mode=burst"}, wantErr: "unsupported mode"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseSettings(tc.args, io.Discard)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestFeed(t *testing.T) {
	drain := func(cfg settings) []int {
		jobs := make(chan int, 64)
		done := make(chan struct{})
		var got []int
		go func() {
			defer close(done)
			for v := range jobs {
				got = append(got, v)
			}
		}()
		feed(jobs, cfg)
		<-done
		return got
	}

	require.Equal(t, []int{0, 1, 2, 3, 4}, drain(settings{iterations: 5}))
	require.NotEmpty(t, drain(settings{runFor: 20 * time.Millisecond}))
	require.Len(t, drain(settings{runFor: time.Second, iterations: 3, capped: true}), 3)
}

func TestRecorderReport(t *testing.T) {
	rec := newRecorder()
	rec.observe(stepScenario, 10*time.Millisecond, codes.OK)
	rec.observe(stepScenario, 20*time.Millisecond, codes.Internal)
	rec.observe(stepCreate, 15*time.Millisecond, codes.OK)

	st, ok := rec.step(stepScenario)
	require.True(t, ok)
	require.Equal(t, int64(2), st.Calls)
	require.Equal(t, int64(1), st.Failed)
	require.Equal(t, map[string]int64{"OK": 1, "Internal": 1}, st.Codes)

	_, ok = rec.step(stepDelete)
	require.False(t, ok)

	rep := rec.report(time.Now(), 2*time.Second)
	require.Equal(t, int64(2), rep.Scenarios)
	require.Equal(t, int64(1), rep.Failed)
	require.InDelta(t, 1.0, rep.RPS, 1e-9)
	require.InDelta(t, 0.5, rep.ErrorRate, 1e-9)
	require.Contains(t, rep.Steps, stepCreate)
}

func TestSummarize(t *testing.T) {
	require.Equal(t, latency{}, summarize(nil))

	got := summarize([]float64{40, 10, 30, 20})
	require.Equal(t, 10.0, got.Min)
	require.Equal(t, 40.0, got.Max)
	require.Equal(t, 25.0, got.Avg)
	require.InDelta(t, 25.0, got.P50, 1e-9)
	require.InDelta(t, 38.5, got.P95, 1e-9)

	require.Equal(t, 7.0, quantile([]float64{7}, 0.99))
	require.Equal(t, 0.25, share(1, 4))
	require.Equal(t, 0.0, share(1, 0))

	require.Equal(t, "count:50", target(settings{iterations: 50}))
	require.Equal(t, "duration:2s", target(settings{runFor: 2 * time.Second}))
	require.Equal(t, "duration:2s,max-total:10", target(settings{runFor: 2 * time.Second, iterations: 10, capped: true}))
}

func TestReportOutput(t *testing.T) {
	rep := report{
		Scenarios: 2,
		Steps: map[string]stepReport{
			stepScenario: {Calls: 2},
			stepCreate:   {Calls: 2},
		},
	}

	var out bytes.Buffer
	rep.print(&out, settings{scenario: scenarioCreate, addr: "svc:50051", iterations: 2})
	require.Contains(t, out.String(), "loadtest create against svc:50051 (count:2)")
	require.Contains(t, out.String(), stepCreate)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, rep.writeFile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded report
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, int64(2), decoded.Scenarios)

	require.Error(t, rep.writeFile("../escape.json"))
	require.Error(t, rep.writeFile("."))
}

func TestRunScenario_Steps(t *testing.T) {
	tests := []struct {
		mode  scenario
		calls []string
	}{
		{mode: scenarioCreate, calls: []string{"Create"}},
		{mode: scenarioCreateQuery, calls: []string{"Create", "List"}},
		{mode: scenarioUpdate, calls: []string{"Create", "Update"}},
		{mode: scenarioFull, calls: []string{"Create", "Update", "Delete"}},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			client := &fakeGoodsClient{
				createFn: func(_ context.Context, rec domain.Good) (domain.Good, error) {
					require.Equal(t, "LOAD-run-3", rec.GoodNumber)
					return rec, nil
				},
			}
			require.NoError(t, testRunner(tc.mode).runScenario(client, 3))
			require.Equal(t, tc.calls, client.calls)
		})
	}

	client := &fakeGoodsClient{}
	r := testRunner(scenarioUpdate)
	r.cfg.deletePct = 100
	require.NoError(t, r.runScenario(client, 3))
	require.True(t, slices.Equal([]string{"Create", "Update", "Delete"}, client.calls))
	require.Equal(t, domain.Patch{"quantity": float64(5)}, client.patches[0])
}

func TestRunScenario_Failures(t *testing.T) {
	r := testRunner(scenarioFull)

	unavailable := &fakeGoodsClient{
		createFn: func(context.Context, domain.Good) (domain.Good, error) {
			return domain.Good{}, status.Error(codes.Unavailable, "down")
		},
	}
	require.Equal(t, codes.Unavailable, status.Code(r.runScenario(unavailable, 1)))

	wrongKey := &fakeGoodsClient{
		createFn: func(context.Context, domain.Good) (domain.Good, error) { return domain.Good{}, nil },
	}
	err := r.runScenario(wrongKey, 2)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Contains(t, err.Error(), "create returned goodNumber")

	missing := &fakeGoodsClient{
		deleteFn: func(_ context.Context, key string) (domain.DeleteResult, error) {
			return domain.DeleteFailed(domain.NewNotFoundError(domain.KindGood, key)), nil
		},
	}
	require.Equal(t, codes.NotFound, status.Code(r.runScenario(missing, 3)))

	notListed := &fakeGoodsClient{
		listFn: func(context.Context, domain.Query) (domain.ListResult[domain.Good], error) {
			return domain.ListResult[domain.Good]{}, nil
		},
	}
	require.Equal(t, codes.Internal, status.Code(testRunner(scenarioCreateQuery).runScenario(notListed, 4)))

	st, ok := r.stats.step(stepScenario)
	require.True(t, ok)
	require.Equal(t, int64(3), st.Failed)
}

func TestDeleteAfterUpdate(t *testing.T) {
	require.False(t, deleteAfterUpdate(5, 0))
	require.True(t, deleteAfterUpdate(99, 100))
	require.True(t, deleteAfterUpdate(109, 10))
	require.False(t, deleteAfterUpdate(110, 10))
}

func TestRun_AgainstMemoryService(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := grpc.NewServer()
	grpcsvc.Register(srv,
		memory.NewRecordRepository[domain.Order](),
		memory.NewRecordRepository[domain.Container](),
		memory.NewRecordRepository[domain.Good](),
		log.WithField("test", "loadtest"),
	)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	for _, mode := range []string{"create-query", "create-update-delete"} {
		t.Run(mode, func(t *testing.T) {
			var stdout bytes.Buffer
			code := run([]string{
				"-addr=" + lis.Addr().String(),
				"-mode=" + mode,
				"-total=5",
				"-concurrency=2",
				"-connections=1",
				"-timeout=2s",
			}, &stdout, io.Discard)
			require.Equal(t, 0, code, stdout.String())
			require.Contains(t, stdout.String(), "scenarios=5 failed=0")
		})
	}

	require.Equal(t, 2, run([]string{"-mode=burst"}, io.Discard, io.Discard))
}

func TestGRPCClientImplementsInterface(t *testing.T) {
	var _ goodsClient = (*grpcsvc.Client[domain.Good])(nil)
	var _ goodsClient = (*fakeGoodsClient)(nil)
}
