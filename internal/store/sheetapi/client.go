// Package sheetapi talks to the remote tabular primary over its values REST
// API. Rows are addressed in A1 notation; the first row holds column headers.
package sheetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"beacon/internal/content"
	"beacon/internal/services"
)

const component = "sheetapi"

// Client reads and writes record rows on the remote sheet. It caches the
// header layout and uid-to-row mapping between calls; ReadAll refreshes both.
type Client struct {
	baseURL string
	sheetID string
	token   string
	tab     string
	http    *http.Client

	mu       sync.Mutex
	colIndex map[string]int
	rowByUID map[string]int
	nextRow  int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithTab sets the worksheet tab name. Defaults to "records".
func WithTab(tab string) Option {
	return func(c *Client) { c.tab = tab }
}

// New builds a client for one sheet.
func New(baseURL, sheetID, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		sheetID: sheetID,
		token:   token,
		tab:     "records",
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadAll fetches every record row and refreshes the cached row index.
func (c *Client) ReadAll(ctx context.Context) ([]*content.Item, error) {
	values, err := c.fetchValues(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.colIndex = make(map[string]int)
	c.rowByUID = make(map[string]int)
	if len(values) == 0 {
		// Empty sheet: first append will write the header.
		c.nextRow = 1
		return nil, nil
	}

	for i, name := range values[0] {
		c.colIndex[name] = i
	}
	uidCol, ok := c.colIndex["record_uid"]
	if !ok {
		return nil, services.Wrap(services.ErrStore, component, "read", "sheet has no record_uid column", nil)
	}

	items := make([]*content.Item, 0, len(values)-1)
	for i, row := range values[1:] {
		if uidCol >= len(row) || row[uidCol] == "" {
			continue
		}
		cells := make(map[string]string, len(c.colIndex))
		for name, col := range c.colIndex {
			if col < len(row) {
				cells[name] = row[col]
			}
		}
		item := itemFromCells(cells)
		sheetRow := i + 2
		item.ID = int64(sheetRow)
		c.rowByUID[item.RecordUID] = sheetRow
		items = append(items, item)
	}
	c.nextRow = len(values) + 1
	return items, nil
}

// Has reports whether a record with the uid exists on the sheet, consulting
// the cache first and re-reading on a miss.
func (c *Client) Has(ctx context.Context, uid string) (bool, error) {
	c.mu.Lock()
	_, ok := c.rowByUID[uid]
	cached := c.rowByUID != nil
	c.mu.Unlock()
	if ok {
		return true, nil
	}
	if cached {
		return false, nil
	}
	if _, err := c.ReadAll(ctx); err != nil {
		return false, err
	}
	c.mu.Lock()
	_, ok = c.rowByUID[uid]
	c.mu.Unlock()
	return ok, nil
}

// Append writes a new record row. On an empty sheet the canonical header row
// is written first.
func (c *Client) Append(ctx context.Context, item *content.Item) error {
	c.mu.Lock()
	needHeader := len(c.colIndex) == 0
	c.mu.Unlock()

	if needHeader {
		if _, err := c.ReadAll(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		needHeader = len(c.colIndex) == 0
		c.mu.Unlock()
	}

	if needHeader {
		header := make([]any, len(columns))
		for i, name := range columns {
			header[i] = name
		}
		if err := c.appendRow(ctx, header); err != nil {
			return err
		}
		c.mu.Lock()
		c.colIndex = make(map[string]int, len(columns))
		for i, name := range columns {
			c.colIndex[name] = i
		}
		c.nextRow = 2
		c.mu.Unlock()
	}

	c.mu.Lock()
	width := 0
	for _, col := range c.colIndex {
		if col+1 > width {
			width = col + 1
		}
	}
	cells := itemCells(item)
	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}
	for name, col := range c.colIndex {
		if value, ok := cells[name]; ok {
			row[col] = value
		}
	}
	c.mu.Unlock()

	if err := c.appendRow(ctx, row); err != nil {
		return err
	}

	c.mu.Lock()
	if c.nextRow == 0 {
		c.nextRow = 2
	}
	c.rowByUID[item.RecordUID] = c.nextRow
	c.nextRow++
	c.mu.Unlock()
	return nil
}

// Update rewrites the known-column cells of the row holding the record.
// Columns the client does not manage keep their values.
func (c *Client) Update(ctx context.Context, item *content.Item) error {
	c.mu.Lock()
	row, ok := c.rowByUID[item.RecordUID]
	c.mu.Unlock()
	if !ok {
		if _, err := c.ReadAll(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		row, ok = c.rowByUID[item.RecordUID]
		c.mu.Unlock()
		if !ok {
			return services.Wrap(services.ErrStore, component, "update",
				fmt.Sprintf("record %s not on sheet", item.RecordUID), nil)
		}
	}

	type rangeData struct {
		Range  string  `json:"range"`
		Values [][]any `json:"values"`
	}
	cells := itemCells(item)

	c.mu.Lock()
	data := make([]rangeData, 0, len(cells))
	for name, col := range c.colIndex {
		value, ok := cells[name]
		if !ok {
			continue
		}
		data = append(data, rangeData{
			Range:  fmt.Sprintf("%s!%s%d", c.tab, columnLetter(col), row),
			Values: [][]any{{value}},
		})
	}
	c.mu.Unlock()

	payload := struct {
		ValueInputOption string      `json:"valueInputOption"`
		Data             []rangeData `json:"data"`
	}{ValueInputOption: "RAW", Data: data}

	endpoint := fmt.Sprintf("%s/%s/values:batchUpdate", c.baseURL, url.PathEscape(c.sheetID))
	return c.do(ctx, http.MethodPost, endpoint, payload, nil, "update")
}

func (c *Client) fetchValues(ctx context.Context) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s", c.baseURL, url.PathEscape(c.sheetID), url.PathEscape(c.tab))
	var decoded struct {
		Values [][]any `json:"values"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &decoded, "read"); err != nil {
		return nil, err
	}
	values := make([][]string, len(decoded.Values))
	for i, row := range decoded.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellToString(cell)
		}
		values[i] = cells
	}
	return values, nil
}

func (c *Client) appendRow(ctx context.Context, row []any) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW",
		c.baseURL, url.PathEscape(c.sheetID), url.PathEscape(c.tab))
	payload := struct {
		Values [][]any `json:"values"`
	}{Values: [][]any{row}}
	return c.do(ctx, http.MethodPost, endpoint, payload, nil, "append")
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any, operation string) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return services.Wrap(services.ErrStore, component, operation, "encode request", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return services.Wrap(services.ErrStore, component, operation, "build request", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrStore, component, operation, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrStore, component, operation,
			fmt.Sprintf("authentication rejected (status %d)", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return services.Wrap(services.ErrStore, component, operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.Wrap(services.ErrStore, component, operation, "decode response", err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	return nil
}
