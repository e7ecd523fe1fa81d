package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"swarmwatch/internal/config"
	"swarmwatch/internal/detect"
)

// ingestClient is the slice of the GreptimeDB ingester used here, kept
// narrow so tests can capture written tables.
type ingestClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// Greptime persists detections to a GreptimeDB table, one row per event.
type Greptime struct {
	client    ingestClient
	clusterID string
	table     string
}

// NewGreptime connects to the configured GreptimeDB instance.
func NewGreptime(cfg config.GreptimeConfig, clusterID string) (*Greptime, error) {
	gcfg := greptime.NewConfig(cfg.Host).WithPort(cfg.Port).WithDatabase(cfg.Database)
	cli, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &Greptime{client: cli, clusterID: clusterID, table: cfg.Table}, nil
}

// RegisterSecurityEvent writes one detection row.
func (g *Greptime) RegisterSecurityEvent(ctx context.Context, t detect.Threat) error {
	tbl, err := g.eventTable(t)
	if err != nil {
		return fmt.Errorf("build event row: %w", err)
	}
	if _, err := g.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write: %w", err)
	}
	return nil
}

// eventTable builds a single-row table for one detection. Row values must
// follow the column declaration order.
func (g *Greptime) eventTable(t detect.Threat) (*table.Table, error) {
	tbl, err := table.New(g.table)
	if err != nil {
		return nil, err
	}
	if err := errors.Join(
		tbl.AddTagColumn("cluster_id", types.STRING),
		tbl.AddTagColumn("event_type", types.STRING),
		tbl.AddTagColumn("category", types.STRING),
		tbl.AddFieldColumn("event_id", types.STRING),
		tbl.AddFieldColumn("target_id", types.STRING),
		tbl.AddFieldColumn("severity", types.STRING),
		tbl.AddFieldColumn("severity_rank", types.INT64),
		tbl.AddFieldColumn("confidence", types.FLOAT64),
		tbl.AddFieldColumn("source", types.STRING),
		tbl.AddFieldColumn("details", types.JSON),
		tbl.AddFieldColumn("thermodynamics", types.JSON),
		tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND),
	); err != nil {
		return nil, err
	}

	details, err := jsonOrEmpty(t.Details)
	if err != nil {
		return nil, err
	}
	thermo, err := jsonOrEmpty(t.Thermo)
	if err != nil {
		return nil, err
	}
	if err := tbl.AddRow(
		g.clusterID,
		string(t.Type),
		string(t.Category),
		t.ID.String(),
		t.TargetID,
		string(t.Severity),
		int64(detect.SeverityToInt(t.Severity)),
		t.Confidence,
		t.Source,
		details,
		thermo,
		t.Timestamp,
	); err != nil {
		return nil, err
	}
	return tbl, nil
}

// jsonOrEmpty marshals v, mapping nil values to an empty JSON object.
func jsonOrEmpty(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(b) == "null" {
		return "{}", nil
	}
	return string(b), nil
}
