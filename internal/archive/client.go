package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client talks to the archive REST API using token authentication.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a Client for the archive at baseURL.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid archive url: %w", err)
	}

	return &Client{
		base:   base,
		token:  token,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With("system", "archive"),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("archive request %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case res.StatusCode < 200 || res.StatusCode > 299:
		return &StatusError{Status: res.StatusCode, Path: path}
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("decode archive response: %w", err)
		}
	}
	return nil
}

// listPages follows the archive's next links until all results are collected.
func listPages[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("page_size", "100")

	var results []T
	pageNum := 1
	for {
		query.Set("page", strconv.Itoa(pageNum))

		var p page[T]
		if err := c.do(ctx, http.MethodGet, path, query, nil, &p); err != nil {
			return nil, err
		}

		results = append(results, p.Results...)
		if p.Next == nil || len(p.Results) == 0 {
			return results, nil
		}
		pageNum++
	}
}

// Document fetches a single document by id.
func (c *Client) Document(ctx context.Context, id int) (*Document, error) {
	var doc Document
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/documents/%d/", id), nil, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentsByTag returns all documents carrying the given tag, in the order
// the archive lists them (ascending id).
func (c *Client) DocumentsByTag(ctx context.Context, tagID int) ([]Document, error) {
	query := url.Values{
		"tags__id__all": {strconv.Itoa(tagID)},
		"ordering":      {"id"},
	}
	return listPages[Document](ctx, c, "/api/documents/", query)
}

// Download returns the raw document file content.
func (c *Client) Download(ctx context.Context, id int) ([]byte, error) {
	path := fmt.Sprintf("/api/documents/%d/download/", id)
	u := c.base.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive download %d: %w", id, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{Status: res.StatusCode, Path: path}
	}

	return io.ReadAll(res.Body)
}

// UpdateDocument applies a partial update to a document. The patch is sent in
// a single request so metadata, tags, and custom fields change atomically.
func (c *Client) UpdateDocument(ctx context.Context, id int, patch DocumentPatch) error {
	c.logger.Debug("updating document", "id", id, "fields", len(patch))
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/documents/%d/", id), nil, patch, nil)
}

// Entities returns all entities of the given kind.
func (c *Client) Entities(ctx context.Context, kind EntityKind) ([]Entity, error) {
	return listPages[Entity](ctx, c, "/api/"+string(kind)+"/", nil)
}

// CustomFields returns all custom field definitions.
func (c *Client) CustomFields(ctx context.Context) ([]CustomField, error) {
	return listPages[CustomField](ctx, c, "/api/custom_fields/", nil)
}

// CreateEntity creates a named entity of the given kind and returns it.
func (c *Client) CreateEntity(ctx context.Context, kind EntityKind, name string) (*Entity, error) {
	var created Entity
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/api/"+string(kind)+"/", nil, body, &created); err != nil {
		return nil, err
	}

	c.logger.Info("created archive entity", "kind", kind, "name", name, "id", created.ID)
	return &created, nil
}
