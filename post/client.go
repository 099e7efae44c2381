// Package post submits a finished upload manifest plus caption and tag
// metadata to the backend create-post endpoint.
package post

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// Client talks to the create-post backend. Retry behavior is whatever the
// injected HTTP client is configured with; Submit itself never re-sends a
// request the backend may have acted on.
type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	accessToken string
	logger      log.Logger
}

// NewClient creates a backend API client.
func NewClient(httpClient *retryablehttp.Client, baseURL, accessToken string, logger log.Logger) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		accessToken: accessToken,
		logger:      logger,
	}
}

type createPostRequest struct {
	UserID         string          `json:"user_id"`
	Caption        string          `json:"caption"`
	Location       string          `json:"location,omitempty"`
	TaggedEntities []TaggedEntity  `json:"tagged_entities,omitempty"`
	Media          json.RawMessage `json:"media"`
}

type createPostResponse struct {
	PostID string `json:"post_id"`
	Error  string `json:"error"`
}

// Submit sends the draft as the authoritative create-post call and returns
// the new post's identifier. An empty manifest or missing user id fails
// validation before any network call is made.
func (c *Client) Submit(ctx context.Context, draft Draft) (string, error) {
	if draft.UserID == "" {
		return "", &SubmissionError{Kind: KindValidation, Err: fmt.Errorf("draft has no user id")}
	}
	if len(draft.Media) == 0 {
		return "", &SubmissionError{Kind: KindValidation, Err: fmt.Errorf("draft has an empty media manifest")}
	}

	// The backend expects the media manifest as a JSON-encoded array field.
	mediaJSON, err := json.Marshal(draft.Media)
	if err != nil {
		return "", &SubmissionError{Kind: KindValidation, Err: fmt.Errorf("encode media manifest: %w", err)}
	}

	body, err := json.Marshal(createPostRequest{
		UserID:         draft.UserID,
		Caption:        draft.Caption,
		Location:       draft.Location,
		TaggedEntities: draft.TaggedEntities,
		Media:          mediaJSON,
	})
	if err != nil {
		return "", &SubmissionError{Kind: KindValidation, Err: err}
	}

	url := fmt.Sprintf("%s/posts", c.baseURL)
	req, err := retryablehttp.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return "", &SubmissionError{Kind: KindValidation, Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &SubmissionError{Kind: KindNetwork, Err: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Printf(err.Error())
		}
	}(resp.Body)

	// Timeouts and throttling are transient, the client may try again; the
	// remaining 4xx mean the draft itself was rejected.
	switch {
	case resp.StatusCode >= 500,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests:
		return "", &SubmissionError{Kind: KindServer, Err: unwrapError(resp)}
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return "", &SubmissionError{Kind: KindValidation, Err: unwrapError(resp)}
	}

	var response createPostResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", &SubmissionError{Kind: KindServer, Err: fmt.Errorf("decode response: %w", err)}
	}
	if response.Error != "" {
		return "", &SubmissionError{Kind: KindValidation, Err: fmt.Errorf("backend rejected post: %s", response.Error)}
	}
	if response.PostID == "" {
		return "", &SubmissionError{Kind: KindServer, Err: fmt.Errorf("no post id in response")}
	}

	c.logger.Debugf("Post %s created with %d media objects", response.PostID, len(draft.Media))

	return response.PostID, nil
}

func unwrapError(resp *http.Response) error {
	errorResp, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errorResp)
}
