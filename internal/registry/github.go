// Package registry adapts GitHub's REST and GraphQL APIs to the
// domain.VersionRegistry interface: resolving version refs to commits,
// listing tags that point at a commit, and listing every tag a
// repository has.
package registry

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"

	"github.com/gx-tool/gx/internal/domain"
)

var errTokenRequired = errors.New("token required for resolution")

// GitHubRegistry implements domain.VersionRegistry against the real
// GitHub API: REST (via go-github) for single-ref resolution, and raw
// GraphQL-over-HTTP (matching the teacher's embed-query pattern) for the
// paginated tag and release listings that back version correction and
// upgrade.
type GitHubRegistry struct {
	rest       *github.Client
	httpClient *http.Client

	allTagsCache Cache[domain.ActionId, []domain.Version]
}

// NewGitHubRegistry builds a registry that authenticates with token. An
// empty token is valid — requests are simply unauthenticated and subject
// to GitHub's lower anonymous rate limit.
func NewGitHubRegistry(token string) *GitHubRegistry {
	httpClient := &http.Client{Transport: newAuthTransport(token, nil)}
	rest := github.NewClient(httpClient)
	return &GitHubRegistry{rest: rest, httpClient: httpClient}
}

var hexPattern = regexp.MustCompile(`^[A-Fa-f0-9]+$`)

// LookupSha resolves a version reference to the commit it currently
// points at, trying tag, then branch, then raw commit hash, in that
// order — mirroring the teacher's GetCommitHashForRef probing sequence.
func (g *GitHubRegistry) LookupSha(id domain.ActionId, version domain.Version) (domain.ResolvedAction, error) {
	if version.IsSHA() {
		sha := domain.CommitSha(version.String())
		return domain.NewResolvedAction(id, version, sha, id.BaseRepo(), domain.RefCommit, ""), nil
	}

	owner, repo, ok := splitBaseRepo(id)
	if !ok {
		return domain.ResolvedAction{}, domain.ResolutionError{
			Kind:   domain.ErrResolveFailed,
			Spec:   domain.NewActionSpec(id, version),
			Reason: "action id must be in \"owner/repo\" form",
		}
	}

	ctx := context.Background()
	ref := version.String()

	if resolved, err := g.resolveTag(ctx, id, owner, repo, ref, version); err == nil {
		return resolved, nil
	} else if errors.Is(err, errTokenRequired) {
		return domain.ResolvedAction{}, domain.ResolutionError{Kind: domain.ErrTokenRequired}
	}

	if gitRef, resp, err := g.rest.Git.GetRef(ctx, owner, repo, "heads/"+ref); err == nil {
		sha := gitRef.GetObject().GetSHA()
		return domain.NewResolvedAction(id, version, domain.CommitSha(sha), id.BaseRepo(), domain.RefBranch, ""), nil
	} else if isAuthFailure(resp) {
		return domain.ResolvedAction{}, domain.ResolutionError{Kind: domain.ErrTokenRequired}
	}

	if hexPattern.MatchString(ref) {
		if commit, _, err := g.rest.Repositories.GetCommit(ctx, owner, repo, ref, nil); err == nil {
			return domain.NewResolvedAction(id, version, domain.CommitSha(commit.GetSHA()), id.BaseRepo(), domain.RefCommit, ""), nil
		}
	}

	return domain.ResolvedAction{}, domain.ResolutionError{
		Kind:   domain.ErrResolveFailed,
		Spec:   domain.NewActionSpec(id, version),
		Reason: "could not resolve reference " + ref,
	}
}

func (g *GitHubRegistry) resolveTag(ctx context.Context, id domain.ActionId, owner, repo, tagName string, version domain.Version) (domain.ResolvedAction, error) {
	gitRef, resp, err := g.rest.Git.GetRef(ctx, owner, repo, "tags/"+tagName)
	if err != nil {
		if isAuthFailure(resp) {
			return domain.ResolvedAction{}, errTokenRequired
		}
		return domain.ResolvedAction{}, err
	}

	sha := gitRef.GetObject().GetSHA()
	if gitRef.GetObject().GetType() == "tag" {
		if tagObj, _, tagErr := g.rest.Git.GetTag(ctx, owner, repo, sha); tagErr == nil && tagObj.GetObject().GetSHA() != "" {
			sha = tagObj.GetObject().GetSHA()
		}
	}

	refType := domain.RefTag
	date := ""
	if release, _, relErr := g.rest.Repositories.GetReleaseByTag(ctx, owner, repo, tagName); relErr == nil {
		refType = domain.RefRelease
		if release.PublishedAt != nil {
			date = release.PublishedAt.Format(time.RFC3339)
		}
	}

	return domain.NewResolvedAction(id, version, domain.CommitSha(sha), id.BaseRepo(), refType, date), nil
}

func isAuthFailure(resp *github.Response) bool {
	return resp != nil && resp.Response != nil &&
		(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden)
}

// TagsForSha returns every tag that currently points at sha (following
// annotated tags to their commit), in the order the GraphQL refs listing
// returns them.
func (g *GitHubRegistry) TagsForSha(id domain.ActionId, sha domain.CommitSha) ([]domain.Version, error) {
	owner, repo, ok := splitBaseRepo(id)
	if !ok {
		return nil, domain.ResolutionError{Kind: domain.ErrResolveFailed, Reason: "invalid action id"}
	}

	ctx := context.Background()
	var tags []domain.Version
	variables := map[string]any{"owner": owner, "repo": repo, "cursor": ""}
	for {
		var resp versionTagsForRefResponse
		if err := g.doGraphql(ctx, getVersionTagsForRefQuery, variables, &resp); err != nil {
			if errors.Is(err, errTokenRequired) {
				return nil, domain.ResolutionError{Kind: domain.ErrTokenRequired}
			}
			return nil, domain.ResolutionError{Kind: domain.ErrResolveFailed, Action: id, Reason: err.Error()}
		}
		for _, node := range resp.Repository.Refs.Nodes {
			oid := node.Target.OID
			if node.Target.Target.OID != "" {
				oid = node.Target.Target.OID
			}
			if oid == sha.String() {
				tags = append(tags, domain.Version(node.Name))
			}
		}
		if !resp.Repository.Refs.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = resp.Repository.Refs.PageInfo.EndCursor
	}

	if len(tags) == 0 {
		return nil, domain.ResolutionError{Kind: domain.ErrNoTagsForSha, Action: id, Sha: sha}
	}
	return tags, nil
}

// AllTags returns every release tag for id's repository, memoized for the
// lifetime of the registry so a prewarm pass and later sequential lookups
// never issue the same request twice.
func (g *GitHubRegistry) AllTags(id domain.ActionId) ([]domain.Version, error) {
	return g.allTagsCache.Do(context.Background(), id, func() ([]domain.Version, error) {
		owner, repo, ok := splitBaseRepo(id)
		if !ok {
			return nil, domain.ResolutionError{Kind: domain.ErrResolveFailed, Reason: "invalid action id"}
		}

		ctx := context.Background()
		var tags []domain.Version
		variables := map[string]any{"owner": owner, "repo": repo, "cursor": ""}
		for {
			var resp repositoryReleasesResponse
			if err := g.doGraphql(ctx, getRepositoryReleasesQuery, variables, &resp); err != nil {
				if errors.Is(err, errTokenRequired) {
					return nil, domain.ResolutionError{Kind: domain.ErrTokenRequired}
				}
				return nil, domain.ResolutionError{Kind: domain.ErrResolveFailed, Action: id, Reason: err.Error()}
			}
			for _, node := range resp.Repository.Releases.Nodes {
				tags = append(tags, domain.Version(node.TagName))
			}
			if !resp.Repository.Releases.PageInfo.HasNextPage {
				break
			}
			variables["cursor"] = resp.Repository.Releases.PageInfo.EndCursor
		}
		return tags, nil
	})
}

func splitBaseRepo(id domain.ActionId) (owner, repo string, ok bool) {
	base := id.BaseRepo()
	o, r, found := strings.Cut(base, "/")
	return o, r, found
}
