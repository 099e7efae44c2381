package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrSearchUnavailable means the tag-search backend could not be reached or
// answered with an error. Distinct from an empty result: "no matches" is a
// successful search with zero entries.
var ErrSearchUnavailable = errors.New("tag search unavailable")

// TagResult is one taggable-entity record returned by the search endpoint.
type TagResult struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	EntityID  string `json:"entity_id"`
	Image     string `json:"image"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Location  string `json:"location,omitempty"`
}

type tagSearchRequest struct {
	Search         string         `json:"search"`
	UserID         string         `json:"user_id"`
	TaggedEntities []TaggedEntity `json:"tagged_entities"`
}

// SearchTags queries the taggable-entity search endpoint. Entities already
// tagged on the draft are passed along so the backend can exclude them.
func (c *Client) SearchTags(ctx context.Context, search, userID string, alreadyTagged []TaggedEntity) ([]TagResult, error) {
	if alreadyTagged == nil {
		alreadyTagged = []TaggedEntity{}
	}
	body, err := json.Marshal(tagSearchRequest{
		Search:         search,
		UserID:         userID,
		TaggedEntities: alreadyTagged,
	})
	if err != nil {
		return nil, fmt.Errorf("encode tag search request: %w", err)
	}

	url := fmt.Sprintf("%s/tags/search", c.baseURL)
	req, err := retryablehttp.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create tag search request: %w", err)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Content-type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Printf(err.Error())
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, unwrapError(resp))
	}

	var results []TagResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrSearchUnavailable, err)
	}

	return results, nil
}
