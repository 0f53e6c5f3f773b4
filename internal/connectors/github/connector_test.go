package github

import (
	"context"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarry-search/quarry/internal/core/domain"
	"github.com/quarry-search/quarry/internal/core/ports/driven"
)

// mockTokenProvider implements driven.TokenProvider for testing.
type mockTokenProvider struct {
	token string
	err   error
}

func (p *mockTokenProvider) GetToken(_ context.Context) (string, error) {
	return p.token, p.err
}

func (p *mockTokenProvider) CredentialID() string {
	return "test-credential"
}

func TestNew(t *testing.T) {
	t.Run("creates connector with valid parameters", func(t *testing.T) {
		cfg := &Config{
			Repos:        []Repo{{Owner: "octocat", Name: "hello-world"}},
			ContentTypes: AllContentTypes(),
		}
		tokenProvider := &mockTokenProvider{token: "test-token"}

		connector := New(cfg, tokenProvider)

		require.NotNil(t, connector)
		assert.Equal(t, "github", connector.Type())
	})

	t.Run("implements Connector interface", func(t *testing.T) {
		connector := New(&Config{}, nil)
		var _ driven.Connector = connector
	})
}

func TestConnector_Capabilities(t *testing.T) {
	caps := New(&Config{}, nil).Capabilities()

	assert.True(t, caps.SupportsIncremental)
	assert.True(t, caps.SupportsLiveListing)
	assert.True(t, caps.RequiresAuth)
	assert.False(t, caps.SupportsWatch)
}

func TestConnector_Closed(t *testing.T) {
	t.Run("validate after close returns closed error", func(t *testing.T) {
		connector := New(&Config{}, &mockTokenProvider{token: "tok"})
		require.NoError(t, connector.Close())

		err := connector.Validate(context.Background())

		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	})

	t.Run("load after close reports closed error", func(t *testing.T) {
		connector := New(&Config{}, &mockTokenProvider{token: "tok"})
		require.NoError(t, connector.Close())

		items, errs := connector.LoadAll(context.Background())

		for range items {
			t.Fatal("expected no items from closed connector")
		}
		assert.ErrorIs(t, <-errs, domain.ErrConnectorClosed)
	})

	t.Run("list live ids after close returns closed error", func(t *testing.T) {
		connector := New(&Config{}, &mockTokenProvider{token: "tok"})
		require.NoError(t, connector.Close())

		_, err := connector.ListLiveIDs(context.Background())

		assert.ErrorIs(t, err, domain.ErrConnectorClosed)
	})
}

func TestConnector_Watch(t *testing.T) {
	connector := New(&Config{}, nil)

	_, err := connector.Watch(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestIssueToItem(t *testing.T) {
	repo := Repo{Owner: "octocat", Name: "hello-world"}
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issue := &gh.Issue{
		Number:    gh.Ptr(42),
		Title:     gh.Ptr("Fix the frobnicator"),
		HTMLURL:   gh.Ptr("https://github.com/octocat/hello-world/issues/42"),
		State:     gh.Ptr("open"),
		UpdatedAt: &gh.Timestamp{Time: updated},
		User:      &gh.User{Login: gh.Ptr("octocat")},
	}

	item := issueToItem(repo, issue)

	assert.Equal(t, "octocat/hello-world#42", item.SourceID)
	assert.Equal(t, "Fix the frobnicator", item.Name)
	assert.Equal(t, "https://github.com/octocat/hello-world/issues/42", item.Link)
	assert.Equal(t, updated, item.ModifiedAt)
	assert.Equal(t, "issue", item.Metadata["kind"])
}

func TestIssueToItem_PullRequest(t *testing.T) {
	repo := Repo{Owner: "octocat", Name: "hello-world"}
	issue := &gh.Issue{
		Number:           gh.Ptr(7),
		Title:            gh.Ptr("Add feature"),
		PullRequestLinks: &gh.PullRequestLinks{URL: gh.Ptr("https://api.github.com/repos/octocat/hello-world/pulls/7")},
	}

	item := issueToItem(repo, issue)

	assert.Equal(t, "pr", item.Metadata["kind"])
}

func TestConnector_Wants(t *testing.T) {
	issuesOnly := New(&Config{ContentTypes: []ContentType{ContentIssues}}, nil)
	pr := &gh.Issue{PullRequestLinks: &gh.PullRequestLinks{}}
	issue := &gh.Issue{}

	assert.True(t, issuesOnly.wants(issue))
	assert.False(t, issuesOnly.wants(pr))
}
