package registry

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
)

//go:embed graphql/getRepositoryReleases.graphql
var getRepositoryReleasesQuery string

//go:embed graphql/getVersionTagsForRef.graphql
var getVersionTagsForRefQuery string

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// doGraphql executes query against GitHub's GraphQL endpoint using the
// registry's authenticated http.Client, decoding the "data" field into
// target.
func (g *GitHubRegistry) doGraphql(ctx context.Context, query string, variables map[string]any, target any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("registry: failed to marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.github.com/graphql", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("registry: failed to build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry: graphql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errTokenRequired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("registry: graphql transport error: %s", resp.Status)
	}

	var gqlResp graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return fmt.Errorf("registry: failed to decode graphql response: %w", err)
	}
	if len(gqlResp.Errors) > 0 {
		return fmt.Errorf("registry: graphql query errors: %v", gqlResp.Errors)
	}
	if err := json.Unmarshal(gqlResp.Data, target); err != nil {
		return fmt.Errorf("registry: failed to unmarshal graphql data: %w", err)
	}
	return nil
}

type repositoryReleasesResponse struct {
	Repository struct {
		Releases struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				TagName      string `json:"tagName"`
				URL          string `json:"url"`
				IsPrerelease bool   `json:"isPrerelease"`
				PublishedAt  string `json:"publishedAt"`
				Tag          struct {
					Target struct {
						OID    string `json:"oid"`
						Target struct {
							OID string `json:"oid"`
						} `json:"target"`
					} `json:"target"`
				} `json:"tag"`
			} `json:"nodes"`
		} `json:"releases"`
	} `json:"repository"`
}

type versionTagsForRefResponse struct {
	Repository struct {
		Refs struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []struct {
				Name   string `json:"name"`
				Target struct {
					OID    string `json:"oid"`
					Target struct {
						OID string `json:"oid"`
					} `json:"target"`
				} `json:"target"`
			} `json:"nodes"`
		} `json:"refs"`
	} `json:"repository"`
}
