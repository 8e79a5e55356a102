package github

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v63/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/coolwithyou/studiobaton.live-sub000/internal/models"
)

const perPage = 100

// Client is a read-only GitHub REST client scoped to one organization
type Client struct {
	gh     *github.Client
	org    string
	logger *logrus.Logger
}

type clientOptions struct {
	baseURL        string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// ClientOption allows configuring the GitHub client
type ClientOption func(*clientOptions)

// WithRetryConfig configures retry behavior for transient failures
func WithRetryConfig(maxRetries int, initialBackoff, maxBackoff time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.maxRetries = maxRetries
		o.initialBackoff = initialBackoff
		o.maxBackoff = maxBackoff
	}
}

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests)
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTimeout sets the per-request HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// NewClient creates a new GitHub client authenticating with a bearer token
func NewClient(token, org string, logger *logrus.Logger, opts ...ClientOption) (*Client, error) {
	if token == "" {
		return nil, NewValidationError("token", "cannot be empty")
	}
	if org == "" {
		return nil, NewValidationError("org", "cannot be empty")
	}

	options := &clientOptions{
		timeout:        120 * time.Second,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBackoff:     time.Minute,
	}
	for _, opt := range opts {
		opt(options)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = options.timeout
	httpClient.Transport = &retryTransport{
		next:           httpClient.Transport,
		maxRetries:     options.maxRetries,
		initialBackoff: options.initialBackoff,
		maxBackoff:     options.maxBackoff,
		logger:         logger,
	}

	gh := github.NewClient(httpClient)
	if options.baseURL != "" {
		base := options.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, NewValidationError("base URL", err.Error())
		}
		gh.BaseURL = u
	}

	return &Client{
		gh:     gh,
		org:    org,
		logger: logger,
	}, nil
}

// Org returns the organization the client is scoped to.
func (c *Client) Org() string {
	return c.org
}

// ListRepositories returns every repository of the organization visible to the token.
// Pages are followed until the provider reports no next page.
func (c *Client) ListRepositories(ctx context.Context) ([]models.Repository, error) {
	logger := c.logger.WithField("org", c.org)

	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var repos []models.Repository
	for {
		page, resp, err := c.gh.Repositories.ListByOrg(ctx, c.org, opts)
		if err != nil {
			return nil, wrapError(err, "failed to list repositories for %s", c.org)
		}

		for _, r := range page {
			repos = append(repos, models.Repository{
				Name:          r.GetName(),
				CreatedAt:     r.GetCreatedAt().Time,
				DefaultBranch: r.GetDefaultBranch(),
				Archived:      r.GetArchived(),
			})
		}

		logger.WithFields(logrus.Fields{
			"page":           opts.Page,
			"count":          len(page),
			"total":          len(repos),
			"rate_remaining": resp.Rate.Remaining,
		}).Debug("Fetched repositories page")

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.WithField("total_repos", len(repos)).Info("Listed organization repositories")
	return repos, nil
}

// ListBranches returns all branch names of a repository. Empty or missing
// repositories yield an empty list and no error.
func (c *Client) ListBranches(ctx context.Context, repo string) ([]string, error) {
	if repo == "" {
		return nil, NewValidationError("repository", "cannot be empty")
	}

	opts := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var names []string
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, c.org, repo, opts)
		if err != nil {
			if IsEmptyOrMissing(err) {
				c.logger.WithField("repository", repo).Debug("Repository has no branches")
				return nil, nil
			}
			return nil, wrapError(err, "failed to list branches for %s", repo)
		}

		for _, b := range branches {
			names = append(names, b.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// ListCommits returns the commits reachable from branch whose author date falls in
// [since, until]. Empty or missing repositories yield an empty list and no error.
func (c *Client) ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]*models.CommitRecord, error) {
	if repo == "" {
		return nil, NewValidationError("repository", "cannot be empty")
	}
	if branch == "" {
		return nil, NewValidationError("branch", "cannot be empty")
	}

	logger := c.logger.WithFields(logrus.Fields{
		"repository": repo,
		"branch":     branch,
		"since":      since,
		"until":      until,
	})

	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var result []*models.CommitRecord
	for {
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, c.org, repo, opts)
		if err != nil {
			if IsEmptyOrMissing(err) {
				logger.Debug("Branch or repository is empty")
				return nil, nil
			}
			return nil, wrapError(err, "failed to list commits for %s@%s", repo, branch)
		}

		for _, rc := range commits {
			result = append(result, toCommitRecord(repo, rc))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.WithField("commits", len(result)).Debug("Fetched commit window")
	return result, nil
}

// GetCommitDetail fetches line statistics and the changed-file list for one commit
func (c *Client) GetCommitDetail(ctx context.Context, repo, sha string) (*models.CommitDetail, error) {
	if repo == "" {
		return nil, NewValidationError("repository", "cannot be empty")
	}
	if sha == "" {
		return nil, NewValidationError("sha", "cannot be empty")
	}

	rc, _, err := c.gh.Repositories.GetCommit(ctx, c.org, repo, sha, nil)
	if err != nil {
		return nil, wrapError(err, "failed to get commit %s in %s", sha, repo)
	}

	detail := &models.CommitDetail{
		Additions: rc.GetStats().GetAdditions(),
		Deletions: rc.GetStats().GetDeletions(),
		Files:     toFileRecords(rc.Files),
	}
	return detail, nil
}

// CheckRateLimit returns the core API quota. On failure it returns an exhausted-looking
// status so that callers gating on Remaining default to caution.
func (c *Client) CheckRateLimit(ctx context.Context) models.RateLimitStatus {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil || limits.GetCore() == nil {
		c.logger.WithError(err).Warn("Failed to read rate limit, assuming exhausted")
		return models.RateLimitStatus{
			Remaining: 0,
			Reset:     time.Now().Add(time.Hour),
		}
	}

	core := limits.GetCore()
	return models.RateLimitStatus{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
		Used:      core.Used,
	}
}

func toCommitRecord(repo string, rc *github.RepositoryCommit) *models.CommitRecord {
	commit := rc.GetCommit()
	author := commit.GetAuthor()

	committedAt := author.GetDate().Time
	if committedAt.IsZero() {
		committedAt = commit.GetCommitter().GetDate().Time
	}

	name := author.GetName()
	if name == "" {
		name = rc.GetAuthor().GetLogin()
	}

	rec := &models.CommitRecord{
		SHA:         rc.GetSHA(),
		Repository:  repo,
		Message:     commit.GetMessage(),
		AuthorName:  name,
		CommittedAt: committedAt.UTC(),
		URL:         rc.GetHTMLURL(),
	}
	if email := author.GetEmail(); email != "" {
		rec.AuthorEmail = &email
	}
	if avatar := rc.GetAuthor().GetAvatarURL(); avatar != "" {
		rec.AuthorAvatarURL = &avatar
	}
	if rc.Stats != nil || len(rc.Files) > 0 {
		rec.ApplyDetail(&models.CommitDetail{
			Additions: rc.GetStats().GetAdditions(),
			Deletions: rc.GetStats().GetDeletions(),
			Files:     toFileRecords(rc.Files),
		})
	}
	return rec
}

func toFileRecords(files []*github.CommitFile) []models.CommitFileRecord {
	if len(files) == 0 {
		return nil
	}
	records := make([]models.CommitFileRecord, 0, len(files))
	for _, f := range files {
		rec := models.CommitFileRecord{
			Filename:  f.GetFilename(),
			Status:    f.GetStatus(),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
			Changes:   f.GetChanges(),
		}
		if f.Patch != nil {
			patch := f.GetPatch()
			rec.Patch = &patch
		}
		records = append(records, rec)
	}
	return records
}
