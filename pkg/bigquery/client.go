// Package bigquery owns the BigQuery connection for the auction analytics
// dataset: verifying it at startup, streaming rows in and running reports.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
	"github.com/angelmondragon/auctionhouse-backend/pkg/gcp"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

const verifyTimeout = 10 * time.Second

var ErrNotInitialized = errors.New("bigquery client not initialized")

type Client struct {
	bq      *bigquery.Client
	project string
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient connects and fails unless the dataset and every configured table
// already exist. Schema management lives with the migrations, not here.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcpCfg.ProjectID)
	dataset := strings.TrimSpace(cfg.Dataset)
	tables := nonBlank(cfg.AuctionEventsTable)
	switch {
	case project == "":
		return nil, errors.New("gcp project id is required")
	case dataset == "":
		return nil, errors.New("bigquery dataset is required")
	case len(tables) == 0:
		return nil, errors.New("bigquery table name is required")
	}

	bq, err := bigquery.NewClient(ctx, project, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, project: project, dataset: bq.Dataset(dataset), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": dataset, "tables": tables}), "bigquery.connected")
	}
	return c, nil
}

// Ping checks the dataset and its tables concurrently.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return ErrNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describe("dataset", c.dataset.DatasetID, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range c.tables {
		g.Go(func() error {
			if _, err := c.dataset.Table(name).Metadata(gctx); err != nil {
				return describe("table", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// TableRef is the backtick-quoted project.dataset.table path for SQL.
func (c *Client) TableRef(table string) string {
	if c == nil || c.dataset == nil {
		return ""
	}
	return fmt.Sprintf("`%s.%s.%s`", c.project, c.dataset.DatasetID, strings.TrimSpace(table))
}

func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return ErrNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errors.New("bigquery table name is required")
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

// Query runs parameterised SQL and hands back the row iterator.
func (c *Client) Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error) {
	if c == nil || c.bq == nil {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(sql) == "" {
		return nil, errors.New("sql query is required")
	}
	q := c.bq.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describe(kind, name string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("checking %s %q: %w", kind, name, err)
}

func nonBlank(values ...string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
