// Package platform publishes posts and manages comments on the social page
// through a Graph-style REST API.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"beacon/internal/content"
	"beacon/internal/logging"
	"beacon/internal/retry"
	"beacon/internal/services"
)

const component = "platform"

// graphTimeLayout is the created_time format the API returns.
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// Client talks to the page's Graph-style API.
type Client struct {
	baseURL     string
	pageID      string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
	retryPolicy retry.Policy
}

// NewClient builds a platform client.
func NewClient(baseURL, pageID, accessToken string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		pageID:      pageID,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewComponentLogger(logger, component),
		retryPolicy: retry.DefaultPolicy(),
	}
}

// CheckCredentials verifies the access token against the API.
func (c *Client) CheckCredentials(ctx context.Context) error {
	params := url.Values{"fields": {"id,name"}}
	_, err := c.get(ctx, "me", params)
	return err
}

// Publish posts the message to the page, attaching the image when a URL is
// given, and returns the platform post id.
func (c *Client) Publish(ctx context.Context, message, imageURL string) (string, error) {
	if c.pageID == "" || c.accessToken == "" {
		return "", services.Wrap(services.ErrConfiguration, component, "publish", "page credentials not configured", nil)
	}

	var (
		path string
		form = url.Values{}
	)
	if imageURL != "" {
		path = c.pageID + "/photos"
		form.Set("url", imageURL)
		form.Set("caption", message)
		form.Set("published", "true")
	} else {
		path = c.pageID + "/feed"
		form.Set("message", message)
	}

	body, err := c.post(ctx, path, form)
	if err != nil {
		return "", err
	}

	var decoded struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalService, component, "publish", "decode response", err)
	}
	postID := decoded.PostID
	if postID == "" {
		postID = decoded.ID
	}
	if postID == "" {
		return "", services.Wrap(services.ErrExternalService, component, "publish", "response carried no post id", nil)
	}
	return postID, nil
}

// ListComments returns the post's top-level comments, newest last, with the
// platform's reply count per comment.
func (c *Client) ListComments(ctx context.Context, postID string) ([]content.Comment, error) {
	params := url.Values{
		"fields": {"id,message,created_time,from,comment_count"},
		"filter": {"stream"},
		"limit":  {"100"},
	}
	body, err := c.get(ctx, postID+"/comments", params)
	if err != nil {
		return nil, err
	}

	var decoded struct {
		Data []struct {
			ID          string `json:"id"`
			Message     string `json:"message"`
			CreatedTime string `json:"created_time"`
			From        struct {
				Name string `json:"name"`
			} `json:"from"`
			CommentCount int `json:"comment_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, "comments", "decode response", err)
	}

	comments := make([]content.Comment, 0, len(decoded.Data))
	for _, raw := range decoded.Data {
		comment := content.Comment{
			ID:         raw.ID,
			PostID:     postID,
			Author:     raw.From.Name,
			Text:       raw.Message,
			ReplyCount: raw.CommentCount,
		}
		if t, err := parseGraphTime(raw.CreatedTime); err == nil {
			comment.CreatedAt = t
		}
		comments = append(comments, comment)
	}
	return comments, nil
}

// Reply posts a reply under the comment and returns the reply id.
func (c *Client) Reply(ctx context.Context, commentID, message string) (string, error) {
	form := url.Values{"message": {message}}
	body, err := c.post(ctx, commentID+"/comments", form)
	if err != nil {
		return "", err
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", services.Wrap(services.ErrExternalService, component, "reply", "decode response", err)
	}
	if decoded.ID == "" {
		return "", services.Wrap(services.ErrExternalService, component, "reply", "response carried no reply id", nil)
	}
	return decoded.ID, nil
}

// CountReactions returns the post's total reaction count.
func (c *Client) CountReactions(ctx context.Context, postID string) (int, error) {
	params := url.Values{
		"summary": {"total_count"},
		"limit":   {"0"},
	}
	body, err := c.get(ctx, postID+"/reactions", params)
	if err != nil {
		return 0, err
	}
	var decoded struct {
		Summary struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return 0, services.Wrap(services.ErrExternalService, component, "reactions", "decode response", err)
	}
	return decoded.Summary.TotalCount, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	var body []byte
	attempt := 0
	err := retry.Do(ctx, c.retryPolicy, services.IsRetryable, func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return services.Wrap(services.ErrExternalService, component, "get", "build request", err)
		}
		body, err = c.send(req, path)
		if err != nil && services.IsRetryable(err) {
			c.logRetry(ctx, path, attempt, err)
		}
		return err
	})
	return body, err
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	form.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s", c.baseURL, path)

	var body []byte
	attempt := 0
	err := retry.Do(ctx, c.retryPolicy, services.IsRetryable, func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return services.Wrap(services.ErrExternalService, component, "post", "build request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		body, err = c.send(req, path)
		if err != nil && services.IsRetryable(err) {
			c.logRetry(ctx, path, attempt, err)
		}
		return err
	})
	return body, err
}

func (c *Client) logRetry(ctx context.Context, path string, attempt int, err error) {
	attrs := []logging.Attr{
		logging.String("path", path),
		logging.Int(logging.FieldAttempt, attempt),
		logging.Error(err),
	}
	if uid, ok := services.RecordUIDFromContext(ctx); ok {
		attrs = append(attrs, logging.String(logging.FieldRecordUID, uid))
	}
	c.logger.Debug("request failed, retrying", logging.Args(attrs...)...)
}

// send executes the request and classifies failures: transport errors, 429,
// and 5xx are retryable; auth rejections are configuration problems; other
// client errors are permanent.
func (c *Client) send(req *http.Request, path string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, path, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, component, path, "read response", err)
	}

	switch {
	case resp.StatusCode < 400:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, services.Wrap(services.ErrConfiguration, component, path,
			fmt.Sprintf("access rejected (status %d)", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrExternalService, component, path,
			fmt.Sprintf("status %d: %s", resp.StatusCode, snippet(body)), nil)
	default:
		return nil, fmt.Errorf("%s: %s: status %d: %s", component, path, resp.StatusCode, snippet(body))
	}
}

func snippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if len(trimmed) > 256 {
		trimmed = trimmed[:256]
	}
	return trimmed
}

func parseGraphTime(value string) (time.Time, error) {
	if t, err := time.Parse(graphTimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
