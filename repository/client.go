package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

var (
	ErrNotFound = errors.New("repository: record not found")
)

const (
	// BatchSize is the hard upper bound on rows per write call the
	// repository accepts.
	BatchSize = 1000

	pageSize       = 10000
	attemptTimeout = 30 * time.Second
	maxRetries     = 4
)

// Client is the contract the pipeline needs from the repository
// service: keyed table reads with projection and filter, batch writes
// of at most BatchSize rows, per-column updates, deletes and
// file-shaped CSV uploads.
type Client interface {
	GetTable(ctx context.Context, table string, opts QueryOptions) ([]Row, error)
	BatchInsert(ctx context.Context, table string, rows []Row) error
	BatchUpdate(ctx context.Context, table string, rows []Row) error
	UpdateColumn(ctx context.Context, table string, column string, rows []Row) error
	Delete(ctx context.Context, table string, key string) error
	UploadCSV(ctx context.Context, table string, payload []byte, action UploadAction) error
	Healthcheck(ctx context.Context) error
}

type RESTClient struct {
	address    *url.URL
	token      string
	httpClient *http.Client
}

func NewClient(address string, token string) (Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, err
	}
	return &RESTClient{
		address:    u,
		token:      token,
		httpClient: &http.Client{Timeout: attemptTimeout},
	}, nil
}

func (c *RESTClient) GetTable(ctx context.Context, table string, opts QueryOptions) ([]Row, error) {
	var rows []Row
	start := 0
	for {
		q := url.Values{}
		q.Set("start", strconv.Itoa(start))
		q.Set("num", strconv.Itoa(pageSize))
		if len(opts.Attrs) > 0 {
			q.Set("attrs", strings.Join(opts.Attrs, ","))
		}
		if opts.Filter != "" {
			q.Set("q", opts.Filter)
		}

		respBody, status, err := c.makeRequest(ctx, "GET", "/api/data/"+table+"?"+q.Encode(), nil)
		if err != nil {
			log.WithError(err).WithField("table", table).Error("Could not read table")
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: table %s", ErrNotFound, table)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("reading table %s returned status %d", table, status)
		}

		var page tablePage
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, err
		}
		rows = append(rows, page.Items...)
		start += len(page.Items)
		if len(page.Items) < pageSize || start >= page.Total {
			break
		}
	}
	return rows, nil
}

func (c *RESTClient) BatchInsert(ctx context.Context, table string, rows []Row) error {
	return c.writeInChunks(ctx, "POST", table, rows)
}

func (c *RESTClient) BatchUpdate(ctx context.Context, table string, rows []Row) error {
	return c.writeInChunks(ctx, "PUT", table, rows)
}

func (c *RESTClient) writeInChunks(ctx context.Context, method string, table string, rows []Row) error {
	for _, chunk := range chunkRows(rows, BatchSize) {
		body, err := json.Marshal(entityBatch{Entities: chunk})
		if err != nil {
			return err
		}
		if err := c.retryWrite(ctx, method, "/api/data/"+table, body); err != nil {
			return fmt.Errorf("writing %d rows to %s: %w", len(chunk), table, err)
		}
	}
	return nil
}

func (c *RESTClient) UpdateColumn(ctx context.Context, table string, column string, rows []Row) error {
	for _, chunk := range chunkRows(rows, BatchSize) {
		batch := columnBatch{}
		for _, r := range chunk {
			batch.Entities = append(batch.Entities, columnValue{ID: r["id"], Value: r[column]})
		}
		body, err := json.Marshal(batch)
		if err != nil {
			return err
		}
		if err := c.retryWrite(ctx, "PUT", "/api/data/"+table+"/"+column, body); err != nil {
			return fmt.Errorf("updating column %s.%s: %w", table, column, err)
		}
	}
	return nil
}

func (c *RESTClient) Delete(ctx context.Context, table string, key string) error {
	respBody, status, err := c.makeRequest(ctx, "DELETE", "/api/data/"+table+"/"+url.PathEscape(key), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, table, key)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("deleting %s/%s returned status %d: %s", table, key, status, string(respBody))
	}
	return nil
}

func (c *RESTClient) UploadCSV(ctx context.Context, table string, payload []byte, action UploadAction) error {
	path := "/api/import/csv?table=" + url.QueryEscape(table) + "&action=" + url.QueryEscape(string(action)) + "&metadata=ignore"
	return c.retryWrite(ctx, "POST", path, payload)
}

func (c *RESTClient) Healthcheck(ctx context.Context) error {
	_, status, err := c.makeRequest(ctx, "GET", "/api/ping", nil)
	if err != nil {
		return fmt.Errorf("repository is unreachable: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("repository ping returned status %d", status)
	}
	return nil
}

// retryWrite retries a failed write with exponential backoff. Write
// batches are idempotent on the repository side, so a retried chunk
// that partially landed is safe to re-send.
func (c *RESTClient) retryWrite(ctx context.Context, method string, path string, body []byte) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	return backoff.Retry(func() error {
		respBody, status, err := c.makeRequest(ctx, method, path, body)
		if err != nil {
			log.WithError(err).WithField("path", path).Warn("Repository write failed, retrying")
			return err
		}
		if status >= 500 {
			err := fmt.Errorf("repository returned status %d: %s", status, string(respBody))
			log.WithError(err).WithField("path", path).Warn("Repository write failed, retrying")
			return err
		}
		if status >= 400 {
			// Client errors will not heal on retry.
			return backoff.Permanent(fmt.Errorf("repository rejected write with status %d: %s", status, string(respBody)))
		}
		return nil
	}, policy)
}

func (c *RESTClient) makeRequest(ctx context.Context, method string, path string, body []byte) ([]byte, int, error) {
	finalURL := c.address.String() + path

	req, err := http.NewRequestWithContext(ctx, method, finalURL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("x-api-token", c.token)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}

func chunkRows(rows []Row, size int) [][]Row {
	var chunks [][]Row
	for len(rows) > size {
		chunks = append(chunks, rows[:size])
		rows = rows[size:]
	}
	if len(rows) > 0 {
		chunks = append(chunks, rows)
	}
	return chunks
}
