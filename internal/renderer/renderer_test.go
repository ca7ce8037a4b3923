package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

func strPtr(s string) *string { return &s }

func sampleSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Username:    "alice",
		GeneratedAt: time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
		Tier:        domain.TierPublic,
		Repositories: []domain.SnapshotRepository{
			{Repository: domain.Repository{Owner: "alice", Name: "notes", URL: "https://github.com/alice/notes", DefaultBranch: "main"}},
			{
				Repository: domain.Repository{
					Owner: "alice", Name: "svc", URL: "https://github.com/alice/svc", DefaultBranch: "main",
					Description: strPtr("Edge <b>service</b>"), Homepage: strPtr("https://svc.example.com"),
					Language: strPtr("TypeScript"), Topics: []string{"workers", "edge"}, Stars: 12, Forks: 3,
					UpdatedAt: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC),
				},
				Deploy: &domain.DeployConfig{
					Source:   "wrangler.toml",
					Name:     strPtr("svc"),
					Routes:   []string{"svc.example.com/*"},
					Bindings: []domain.Binding{{Kind: domain.BindingKV, ID: "kv-1"}},
				},
			},
			{Repository: domain.Repository{Owner: "alice", Name: "blog", URL: "https://github.com/alice/blog"}},
		},
		Lists: []domain.RepoList{
			{Name: "favorites", Repos: []string{"Alice/SVC", "alice/secret"}},
			{Name: "hidden", Repos: []string{"alice/secret"}},
		},
	}
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestRender_Deterministic(t *testing.T) {
	r := newRenderer(t)
	snap := sampleSnapshot()

	first, err := r.Render("alice", "", snap)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := r.Render("alice", "", snap)
		require.NoError(t, err)
		assert.Equal(t, first.Markup, again.Markup)
		assert.Equal(t, first.Plaintext, again.Plaintext)
	}
}

func TestRender_GroupsPreserveOrder(t *testing.T) {
	out, err := newRenderer(t).Render("alice", "", sampleSnapshot())
	require.NoError(t, err)

	for _, body := range []string{out.Markup, out.Plaintext} {
		deployable := strings.Index(body, "Deployable (1)")
		require.GreaterOrEqual(t, deployable, 0)
		sections := body[deployable:]
		other := strings.Index(sections, "Other (2)")
		require.Greater(t, other, 0, "sections out of order")

		svc := strings.Index(sections, "alice/svc")
		notes := strings.Index(sections, "alice/notes")
		blog := strings.Index(sections, "alice/blog")
		assert.True(t, svc >= 0 && svc < other, "svc belongs to the deployable group")
		assert.True(t, other < notes && notes < blog, "other group keeps snapshot order")
	}
}

func TestRender_MarkupLinks(t *testing.T) {
	out, err := newRenderer(t).Render("alice", "", sampleSnapshot())
	require.NoError(t, err)
	m := out.Markup

	assert.Equal(t, 1, strings.Count(m, `class="route"`))
	assert.Contains(t, m, `>svc.example.com/*</a>`)
	assert.Contains(t, m, `href="https://dash.cloudflare.com/:account/workers/services/view/svc/production/domains?route=svc.example.com%2F%2A"`)
	assert.Contains(t, m, `href="https://svc.example.com/"`)
	assert.Contains(t, m, `href="https://deploy.workers.cloudflare.com/?url=https%3A%2F%2Fgithub.com%2Falice%2Fsvc"`)
	assert.Contains(t, m, `/svc/production/settings/builds"`)
	assert.Contains(t, m, `/svc/production/deployments"`)
	assert.Contains(t, m, `href="https://github.dev/alice/notes"`)
	assert.Contains(t, m, `value="https://uithub.com/alice/notes"`)
	assert.Contains(t, m, `kv_namespace: kv-1`)

	// deploy console links only for deployable repositories
	assert.Equal(t, 1, strings.Count(m, `>Deploy</a>`))
	assert.Equal(t, 3, strings.Count(m, `>Edit</a>`))
}

func TestRender_EscapesUserText(t *testing.T) {
	snap := sampleSnapshot()
	snap.Repositories[0].Description = strPtr(`<script>alert("x")</script>`)

	out, err := newRenderer(t).Render("alice", "", snap)
	require.NoError(t, err)

	assert.NotContains(t, out.Markup, `<script>alert`)
	assert.Contains(t, out.Markup, `&lt;script&gt;`)
	assert.Contains(t, out.Markup, `Edge &lt;b&gt;service&lt;/b&gt;`)
	assert.Contains(t, out.Plaintext, `<script>alert("x")</script>`)
}

func TestRender_Placeholders(t *testing.T) {
	out, err := newRenderer(t).Render("alice", "", sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, out.Plaintext, "### alice/notes\n\n- Description: (none)\n- Homepage: (none)\n- Language: (none)\n- Topics: (none)")
	assert.Contains(t, out.Markup, `<p class="description">(none)</p>`)
	assert.Contains(t, out.Plaintext, "- Topics: workers, edge")
}

func TestRender_AnnotationAndViewer(t *testing.T) {
	r := newRenderer(t)

	anon, err := r.Render("alice", "", sampleSnapshot())
	require.NoError(t, err)
	assert.Contains(t, anon.Markup, `data-generated-at="2024-06-01T10:30:00Z"`)
	assert.Contains(t, anon.Markup, `<meta name="dashboard-username" content="alice">`)
	assert.Contains(t, anon.Plaintext, "Generated: 2024-06-01T10:30:00Z")
	assert.Contains(t, anon.Plaintext, "Viewing as: anonymous")

	owner, err := r.Render("alice", "alice", sampleSnapshot())
	require.NoError(t, err)
	assert.Contains(t, owner.Plaintext, "Viewing as: alice")
	assert.NotEqual(t, anon.Markup, owner.Markup)
}

func TestRender_ListsOnlyNameSnapshotMembers(t *testing.T) {
	out, err := newRenderer(t).Render("alice", "", sampleSnapshot())
	require.NoError(t, err)

	for _, body := range []string{out.Markup, out.Plaintext} {
		assert.Contains(t, body, "favorites")
		assert.NotContains(t, body, "alice/secret")
		assert.NotContains(t, body, "hidden")
	}
}

func TestRender_EmptySnapshot(t *testing.T) {
	snap := &domain.Snapshot{Username: "empty", Tier: domain.TierPublic}

	out, err := newRenderer(t).Render("empty", "", snap)
	require.NoError(t, err)
	assert.Contains(t, out.Plaintext, "## Deployable (0)\n\n(none)")
	assert.Contains(t, out.Markup, `<p class="empty">(none)</p>`)
	assert.Contains(t, out.Plaintext, "Generated: (none)")
}

func TestRender_NilSnapshot(t *testing.T) {
	_, err := newRenderer(t).Render("alice", "", nil)
	assert.Error(t, err)
}

func TestRouteURL(t *testing.T) {
	tests := map[string]string{
		"svc.example.com/*":       "https://svc.example.com/",
		"*.example.com/api/*":     "https://example.com/api/",
		"example.com":             "https://example.com/",
		"https://x.example.com/a": "https://x.example.com/a",
		"*example.com/*":          "https://example.com/",
	}
	for in, want := range tests {
		assert.Equal(t, want, routeURL(in), in)
	}
}

func TestSummaryTable(t *testing.T) {
	out, err := newRenderer(t).Render("alice", "", sampleSnapshot())
	require.NoError(t, err)

	assert.Contains(t, out.Plaintext, "Repository")
	assert.Regexp(t, `\|\s+alice/svc\s+\|\s+12\s+\|\s+3\s+\|\s+TypeScript\s+\|\s+yes\s+\|`, out.Plaintext)
	assert.Regexp(t, `\|\s+alice/notes\s+\|\s+0\s+\|\s+0\s+\|\s+\(none\)\s+\|\s+no\s+\|`, out.Plaintext)
}
