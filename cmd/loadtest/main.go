// Package main — нагрузочный прогон gRPC-сервиса товаров: создание, выборка,
// частичное обновление и удаление записей Good.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/logistics/internal/service/grpc"
)

// scenario — набор шагов, выполняемых над одной записью.
type scenario string

const (
	scenarioCreate      scenario = "create"
	scenarioCreateQuery scenario = "create-query"
	scenarioUpdate      scenario = "create-update"
	scenarioFull        scenario = "create-update-delete"
)

var scenarios = []scenario{scenarioCreate, scenarioCreateQuery, scenarioUpdate, scenarioFull}

type settings struct {
	addr       string
	scenario   scenario
	iterations int
	capped     bool
	runFor     time.Duration
	workers    int
	conns      int
	rpcTimeout time.Duration
	deletePct  int
	unit       string
	value      float64
	prefix     string
	reportPath string
}

func parseSettings(args []string, stderr io.Writer) (settings, error) {
	var (
		s            settings
		scenarioName string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&s.addr, "addr", "localhost:50051", "logistics-service gRPC address")
	fs.StringVar(&scenarioName, "mode", string(scenarioCreate), "scenario: "+joinScenarios())
	fs.IntVar(&s.iterations, "total", 400, "scenarios to run; with -duration acts as an upper bound")
	fs.DurationVar(&s.runFor, "duration", 0, "run for this long instead of a fixed count")
	fs.IntVar(&s.workers, "concurrency", 40, "parallel workers")
	fs.IntVar(&s.conns, "connections", 20, "gRPC connections shared by workers")
	fs.DurationVar(&s.rpcTimeout, "timeout", 5*time.Second, "per-call timeout")
	fs.IntVar(&s.deletePct, "delete-rate", 0, "percent of create-update scenarios that also delete (0..100)")
	fs.StringVar(&s.unit, "unit", "pcs", "unit of generated goods")
	fs.Float64Var(&s.value, "value", 10, "value of generated goods")
	fs.StringVar(&s.prefix, "key-prefix", "LOAD", "goodNumber prefix")
	fs.StringVar(&s.reportPath, "output", "", "write the JSON report to this file")
	if err := fs.Parse(args); err != nil {
		return s, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			s.capped = true
		}
	})

	mode, err := parseScenario(scenarioName)
	if err != nil {
		return s, err
	}
	s.scenario = mode

	return s, s.validate()
}

func (s settings) validate() error {
	switch {
	case s.runFor < 0:
		return fmt.Errorf("duration must be >= 0")
	case s.runFor == 0 && s.iterations <= 0:
		return fmt.Errorf("total must be > 0 without -duration")
	case s.runFor > 0 && s.capped && s.iterations <= 0:
		return fmt.Errorf("total must be > 0 when combined with -duration")
	case s.workers <= 0:
		return fmt.Errorf("concurrency must be > 0")
	case s.conns <= 0:
		return fmt.Errorf("connections must be > 0")
	case s.rpcTimeout <= 0:
		return fmt.Errorf("timeout must be > 0")
	case s.value < 0:
		return fmt.Errorf("value must be >= 0")
	case s.deletePct < 0 || s.deletePct > 100:
		return fmt.Errorf("delete-rate must be between 0 and 100")
	case strings.TrimSpace(s.unit) == "":
		return fmt.Errorf("unit is required")
	case strings.TrimSpace(s.prefix) == "":
		return fmt.Errorf("key-prefix is required")
	}
	return nil
}

func parseScenario(raw string) (scenario, error) {
	name := scenario(strings.TrimSpace(raw))
	for _, known := range scenarios {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported mode %q, expected one of %s", raw, joinScenarios())
}

func joinScenarios() string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = string(s)
	}
	return strings.Join(names, " | ")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run возвращает код выхода: 0 — все сценарии успешны, 1 — были сбои, 2 — неверные флаги.
func run(args []string, stdout, stderr io.Writer) int {
	s, err := parseSettings(args, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid flags: %v\n", err)
		return 2
	}

	clients := make([]goodsClient, 0, s.conns)
	for i := 0; i < s.conns; i++ {
		conn, err := grpc.NewClient(s.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			fmt.Fprintf(stderr, "dial %s: %v\n", s.addr, err)
			return 1
		}
		defer conn.Close()
		clients = append(clients, grpcsvc.NewClient[domain.Good](conn))
	}

	result := newRunner(s, clients).run()

	result.print(stdout, s)
	if s.reportPath != "" {
		if err := result.writeFile(s.reportPath); err != nil {
			fmt.Fprintf(stderr, "write report: %v\n", err)
			return 1
		}
	}
	if result.Failed > 0 {
		return 1
	}
	return 0
}
