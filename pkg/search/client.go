package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grantinsight/gisearch/pkg/config"
	"github.com/grantinsight/gisearch/pkg/version"
)

// maxBodySize bounds how much of a reply is read.
const maxBodySize = 8 << 20

// Transport performs one search request.
type Transport interface {
	Search(ctx context.Context, params Params) (*Response, error)
}

// Suggester looks up keyword suggestions for partial input.
type Suggester interface {
	Suggest(ctx context.Context, keyword string) ([]string, error)
}

// AjaxClient talks to the WordPress admin-ajax endpoint. It implements both
// Transport and Suggester.
type AjaxClient struct {
	url           string
	nonce         string
	searchAction  string
	suggestAction string
	client        *http.Client
}

// NewAjaxClient creates a client for the endpoint. Cancellation and
// timeouts come from the request context, so the HTTP client carries none.
func NewAjaxClient(endpoint config.EndpointConfig) *AjaxClient {
	c := &AjaxClient{
		url:           endpoint.AjaxURL,
		nonce:         endpoint.Nonce,
		searchAction:  endpoint.SearchAction,
		suggestAction: endpoint.SuggestAction,
		client:        &http.Client{},
	}
	if c.url == "" {
		c.url = config.DefaultAjaxURL
	}
	if c.searchAction == "" {
		c.searchAction = config.DefaultSearchAction
	}
	if c.suggestAction == "" {
		c.suggestAction = config.DefaultSuggestAction
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *AjaxClient) WithHTTPClient(hc *http.Client) *AjaxClient {
	c.client = hc
	return c
}

func (c *AjaxClient) Search(ctx context.Context, params Params) (*Response, error) {
	form := params.Values()
	body, err := c.post(ctx, c.searchAction, form)
	if err != nil {
		return nil, err
	}
	return DecodeResponse(body)
}

// Suggest posts the suggestion action and returns the string list carried
// in data. Replies without a list yield no suggestions.
func (c *AjaxClient) Suggest(ctx context.Context, keyword string) ([]string, error) {
	body, err := c.post(ctx, c.suggestAction, url.Values{"keyword": {keyword}})
	if err != nil {
		return nil, err
	}
	var reply struct {
		Success bool         `json:"success"`
		Data    []flexString `json:"data"`
	}
	if err := json.Unmarshal(body, &reply); err != nil || !reply.Success {
		return nil, nil
	}
	out := make([]string, 0, len(reply.Data))
	for _, s := range reply.Data {
		if s != "" {
			out = append(out, string(s))
		}
	}
	return out, nil
}

func (c *AjaxClient) post(ctx context.Context, action string, form url.Values) ([]byte, error) {
	form.Set("action", action)
	form.Set("nonce", c.nonce)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debugf("failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	// WordPress answers wp_send_json_error with 4xx/5xx and a JSON body;
	// only a non-JSON error reply is a transport failure.
	if resp.StatusCode/100 != 2 && !json.Valid(body) {
		return nil, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return body, nil
}
