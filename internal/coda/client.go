// Package coda is a read-only client for the Coda document API, used to
// export structured documents alongside the web crawl.
package coda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/ternarybob/colligo/internal/common"
)

// Client calls the Coda REST API with bearer-token authentication. API
// failures are returned as-is: the export aborts on the first non-200
// response rather than retrying.
type Client struct {
	baseURL string
	http    *http.Client
	logger  arbor.ILogger
}

// NewClient builds a client from the coda configuration. The token is
// injected through an oauth2 transport so every request carries it.
func NewClient(ctx context.Context, cfg *common.CodaConfig, logger arbor.ILogger) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("Coda API token is required (set CODA_API_TOKEN or coda.api_token in config)")
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://coda.io/apis/v1"
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken})
	return &Client{
		baseURL: baseURL,
		http:    oauth2.NewClient(ctx, source),
		logger:  logger,
	}, nil
}

// ListDocs returns every document the token can access.
func (c *Client) ListDocs(ctx context.Context) ([]Doc, error) {
	var envelope listEnvelope[Doc]
	if err := c.get(ctx, "/docs", &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// DocInfo returns metadata for one document.
func (c *Client) DocInfo(ctx context.Context, docID string) (*Doc, error) {
	var doc Doc
	if err := c.get(ctx, "/docs/"+url.PathEscape(docID), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Pages lists the pages of a document.
func (c *Client) Pages(ctx context.Context, docID string) ([]Page, error) {
	var envelope listEnvelope[Page]
	if err := c.get(ctx, fmt.Sprintf("/docs/%s/pages", url.PathEscape(docID)), &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// PageContent fetches the body of one page.
func (c *Client) PageContent(ctx context.Context, docID, pageID string) (*PageContent, error) {
	var content PageContent
	path := fmt.Sprintf("/docs/%s/pages/%s/content", url.PathEscape(docID), url.PathEscape(pageID))
	if err := c.get(ctx, path, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// Tables lists the tables of a document.
func (c *Client) Tables(ctx context.Context, docID string) ([]Table, error) {
	var envelope listEnvelope[Table]
	if err := c.get(ctx, fmt.Sprintf("/docs/%s/tables", url.PathEscape(docID)), &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// TableRows returns every row of one table.
func (c *Client) TableRows(ctx context.Context, docID, tableID string) ([]Row, error) {
	var envelope listEnvelope[Row]
	path := fmt.Sprintf("/docs/%s/tables/%s/rows", url.PathEscape(docID), url.PathEscape(tableID))
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// ExportDoc walks one document: metadata, every page's content, and every
// table's rows.
func (c *Client) ExportDoc(ctx context.Context, docID string) (*DocExport, error) {
	doc, err := c.DocInfo(ctx, docID)
	if err != nil {
		return nil, err
	}
	export := &DocExport{Doc: *doc}

	pages, err := c.Pages(ctx, docID)
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		content, err := c.PageContent(ctx, docID, page.ID)
		if err != nil {
			return nil, err
		}
		export.Pages = append(export.Pages, PageExport{Page: page, Content: *content})
	}

	tables, err := c.Tables(ctx, docID)
	if err != nil {
		return nil, err
	}
	for _, table := range tables {
		rows, err := c.TableRows(ctx, docID, table.ID)
		if err != nil {
			return nil, err
		}
		export.Tables = append(export.Tables, TableExport{Table: table, Rows: rows})
	}
	return export, nil
}

// get issues one GET request and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	requestURL := c.baseURL + path
	c.logger.Debug().Str("url", requestURL).Msg("Coda API request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("coda API %s returned %d: %s", path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("coda API %s returned %d", path, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}
