package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/logistics/internal/service/grpc"
	"github.com/vladislavdragonenkov/logistics/internal/storage/memory"
)

func newBufconnDial(t *testing.T) (dialFunc, *[]string) {
	t.Helper()

	listener := bufconn.Listen(1024 * 1024)
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	server := grpc.NewServer()
	grpcsvc.Register(server,
		memory.NewRecordRepository[domain.Order](),
		memory.NewRecordRepository[domain.Container](),
		memory.NewRecordRepository[domain.Good](),
		logger.WithField("component", "test"),
	)
	go func() { _ = server.Serve(listener) }()

	dialer := func(context.Context, string) (net.Conn, error) { return listener.Dial() }
	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	var addrs []string
	return func(addr string) (grpc.ClientConnInterface, func() error, error) {
		addrs = append(addrs, addr)
		return conn, func() error { return nil }, nil
	}, &addrs
}

func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"LOGISTICSCTL_ADDR", "LOGISTICSCTL_TIMEOUT", "LOGISTICSCTL_KAFKA_BROKERS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func execute(t *testing.T, dial dialFunc, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(dial)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGoodsLifecycle(t *testing.T) {
	isolateConfig(t)
	dial, _ := newBufconnDial(t)

	out, err := execute(t, dial, `{"goodNumber":"G-1","name":"Coffee","quantity":10,"unit":"kg","value":120.5}`, "goods", "create")
	require.NoError(t, err)
	var created domain.Good
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.Equal(t, "Coffee", created.Name)

	out, err = execute(t, dial, `{"quantity":4}`, "goods", "update", "G-1", "-f", "-")
	require.NoError(t, err)
	var updated domain.Good
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	require.Equal(t, float64(4), updated.Quantity)
	require.Equal(t, "Coffee", updated.Name)

	out, err = execute(t, dial, "", "good", "get", "G-1")
	require.NoError(t, err)
	require.Contains(t, out, `"goodNumber": "G-1"`)

	out, err = execute(t, dial, "", "goods", "list", "--filter", "name:starts_with:Cof", "--sort", "value:DESC", "--limit", "5")
	require.NoError(t, err)
	var list domain.ListResult[domain.Good]
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Equal(t, 1, list.TotalCount)

	out, err = execute(t, dial, "", "goods", "delete", "G-1")
	require.NoError(t, err)
	var deleted domain.DeleteResult
	require.NoError(t, json.Unmarshal([]byte(out), &deleted))
	require.Equal(t, domain.DeleteResult{Success: true, Message: "good G-1 deleted", Code: "OK"}, deleted)

	out, err = execute(t, dial, "", "goods", "delete", "G-1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &deleted))
	require.False(t, deleted.Success)
	require.Equal(t, "NOT_FOUND", deleted.Code)
}

func TestReplaceFromFile(t *testing.T) {
	isolateConfig(t)
	dial, _ := newBufconnDial(t)

	_, err := execute(t, dial, `{"goodNumber":"G-2","name":"Tea","quantity":1,"unit":"box","value":3}`, "goods", "create")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "good.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"goodNumber":"G-2","name":"Green tea","quantity":2,"unit":"box","value":5}`), 0o600))

	out, err := execute(t, dial, "", "goods", "replace", "G-2", "--file", path)
	require.NoError(t, err)
	require.Contains(t, out, `"name": "Green tea"`)
}

func TestRecordCommandErrors(t *testing.T) {
	isolateConfig(t)
	dial, _ := newBufconnDial(t)

	_, err := execute(t, dial, "", "orders", "get", "bad-number")
	require.Error(t, err)

	_, err = execute(t, dial, `{"goodNumber":"G-1","colour":"red"}`, "goods", "create")
	require.Error(t, err)
	require.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, err = execute(t, dial, "", "containers", "list", "--filter", "type")
	require.ErrorContains(t, err, "field:OPERATION:value")

	_, err = execute(t, dial, "", "containers", "list", "--filter", "type:LIKE:40")
	require.Error(t, err)

	_, err = execute(t, dial, "{", "goods", "update", "G-1")
	require.ErrorContains(t, err, "decode patch")
}

func TestBuildQuery(t *testing.T) {
	q, err := buildQuery([]string{"route.originPort.name:equal:Gdansk:North"}, "createdAt", 0, 20, false, true)
	require.NoError(t, err)
	require.Equal(t, []domain.FilterClause{{Field: "route.originPort.name", Operation: domain.OpEqual, Value: "Gdansk:North"}}, q.Filter)
	require.Equal(t, &domain.SortSpec{Field: "createdAt", Direction: domain.SortAscending}, q.Sort)
	require.Equal(t, &domain.PageSpec{Limit: math.MaxInt32, Offset: 20}, q.Page)

	q, err = buildQuery(nil, "", 0, 0, false, false)
	require.NoError(t, err)
	require.Nil(t, q.Page)
	require.Nil(t, q.Sort)

	_, err = buildQuery(nil, "name:SIDEWAYS", 0, 0, false, false)
	require.Error(t, err)

	_, err = buildQuery(nil, "", -1, 0, true, false)
	require.Error(t, err)
}

func TestAddressResolution(t *testing.T) {
	isolateConfig(t)
	dial, addrs := newBufconnDial(t)

	_, err := execute(t, dial, "", "goods", "list")
	require.NoError(t, err)

	t.Setenv("LOGISTICSCTL_ADDR", "env-host:50051")
	_, err = execute(t, dial, "", "goods", "list")
	require.NoError(t, err)

	_, err = execute(t, dial, "", "--addr", "flag-host:50051", "goods", "list")
	require.NoError(t, err)

	require.NoError(t, os.Unsetenv("LOGISTICSCTL_ADDR"))
	path := filepath.Join(t.TempDir(), "ctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: file-host:50051\ntimeout: 3s\n"), 0o600))
	_, err = execute(t, dial, "", "--config", path, "goods", "list")
	require.NoError(t, err)

	require.Equal(t, []string{defaultAddr, "env-host:50051", "flag-host:50051", "file-host:50051"}, *addrs)

	_, err = execute(t, dial, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "goods", "list")
	require.ErrorContains(t, err, "read config")
}

func TestWatch_RequiresBrokers(t *testing.T) {
	isolateConfig(t)
	dial, _ := newBufconnDial(t)

	_, err := execute(t, dial, "", "watch")
	require.ErrorContains(t, err, "kafka brokers are required")

	_, err = execute(t, dial, "", "watch", "--brokers", "127.0.0.1:1", "--kind", "vessel")
	require.ErrorContains(t, err, `unknown record kind "vessel"`)
}

func TestParseKinds(t *testing.T) {
	only, err := parseKinds([]string{"Order", " good "})
	require.NoError(t, err)
	require.Equal(t, map[domain.RecordKind]bool{domain.KindOrder: true, domain.KindGood: true}, only)

	require.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092"))
	require.Nil(t, splitList(""))
}

func TestVersionCommand(t *testing.T) {
	isolateConfig(t)
	out, err := execute(t, nil, "", "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "logisticsctl version="), out)
}
