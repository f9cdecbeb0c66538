package activity

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// DefaultTable is used when ACTIVITY_TABLE is unset.
const DefaultTable = "dashboard_activity"

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes rows to GreptimeDB through the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port). An empty
// table name falls back to ACTIVITY_TABLE and then DefaultTable.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{client: client, table: tableFor(tableName), timeout: 5 * time.Second}, nil
}

func tableFor(name string) string {
	if name != "" {
		return name
	}
	if env := os.Getenv("ACTIVITY_TABLE"); env != "" {
		return env
	}
	return DefaultTable
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptime endpoint required")
	}
	host, p, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint %q: bad port: %w", endpoint, err)
	}
	return host, port, nil
}

// Write inserts a single row.
func (w *GreptimeDBWriter) Write(row Row) error {
	return w.WriteBatch([]Row{row})
}

// WriteBatch inserts multiple rows in one request.
func (w *GreptimeDBWriter) WriteBatch(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := w.buildTable(rows)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", w.table, err)
	}
	return nil
}

func (w *GreptimeDBWriter) buildTable(rows []Row) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"session_id", "kind"} {
		if err := tbl.AddTagColumn(col, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddFieldColumn("scenario", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("detail", types.STRING); err != nil {
		return nil, err
	}
	if err := tbl.AddFieldColumn("focus", types.FLOAT64); err != nil {
		return nil, err
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.SessionID, r.Kind, r.Scenario, r.Detail, r.Focus, r.Timestamp); err != nil {
			return nil, fmt.Errorf("greptime row: %w", err)
		}
	}
	return tbl, nil
}
