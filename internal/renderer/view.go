package renderer

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/janwilmake/flaredream.dash/internal/domain"
)

const (
	// AccountPlaceholder stands in for the deployment account id, which is not known here
	AccountPlaceholder = ":account"

	consoleBase = "https://dash.cloudflare.com/" + AccountPlaceholder + "/workers/services/view/"
	deployBase  = "https://deploy.workers.cloudflare.com/?url="
	sourceBase  = "https://github.com/"
	editorBase  = "https://github.dev/"
	contextBase = "https://uithub.com/"
	chatBase    = "https://chatgpt.com/?q="
)

type link struct {
	Label string
	URL   string
}

type routeLink struct {
	Pattern    string
	URL        string
	ConsoleURL string
}

type bindingView struct {
	Kind string
	ID   string
}

type deployView struct {
	Source      string
	ServiceName string
	Main        string
	Links       []link
	Routes      []routeLink
	Bindings    []bindingView
}

type repoView struct {
	Owner         string
	Name          string
	FullName      string
	Description   string
	Homepage      string
	HomepageURL   string
	Language      string
	Topics        string
	DefaultBranch string
	Stars         int
	Forks         int
	Watchers      int
	OpenIssues    int
	Size          int64
	Created       string
	Updated       string
	Private       bool
	Archived      bool
	ReferenceURL  string
	Links         []link
	Deploy        *deployView
}

type listView struct {
	Name  string
	Repos []string
}

type view struct {
	Username    string
	ViewerLabel string
	Tier        string
	GeneratedAt string
	Total       int
	Deployable  []repoView
	Other       []repoView
	Lists       []listView
	Summary     string
}

func buildView(username, viewer string, snap *domain.Snapshot) *view {
	v := &view{
		Username:    username,
		ViewerLabel: viewer,
		Tier:        string(snap.Tier),
		GeneratedAt: formatTimestamp(snap.GeneratedAt),
		Total:       len(snap.Repositories),
	}
	if v.ViewerLabel == "" {
		v.ViewerLabel = "anonymous"
	}

	present := make(map[string]string, len(snap.Repositories))
	for i := range snap.Repositories {
		sr := &snap.Repositories[i]
		rv := buildRepoView(sr)
		present[strings.ToLower(rv.FullName)] = rv.FullName
		if sr.Deploy != nil {
			v.Deployable = append(v.Deployable, rv)
		} else {
			v.Other = append(v.Other, rv)
		}
	}

	// Lists only name repositories that are part of this snapshot, so a public
	// page never reveals a private repository through list membership.
	for _, l := range snap.Lists {
		lv := listView{Name: l.Name}
		for _, full := range l.Repos {
			if name, ok := present[strings.ToLower(full)]; ok {
				lv.Repos = append(lv.Repos, name)
			}
		}
		if len(lv.Repos) > 0 {
			v.Lists = append(v.Lists, lv)
		}
	}
	return v
}

func buildRepoView(sr *domain.SnapshotRepository) repoView {
	owner := url.PathEscape(sr.Owner)
	name := url.PathEscape(sr.Name)
	canonical := sr.URL
	if canonical == "" {
		canonical = sourceBase + owner + "/" + name
	}
	reference := contextBase + owner + "/" + name

	rv := repoView{
		Owner:         sr.Owner,
		Name:          sr.Name,
		FullName:      sr.FullName(),
		Description:   orPlaceholder(sr.Description),
		Homepage:      orPlaceholder(sr.Homepage),
		Language:      orPlaceholder(sr.Language),
		Topics:        Placeholder,
		DefaultBranch: sr.DefaultBranch,
		Stars:         sr.Stars,
		Forks:         sr.Forks,
		Watchers:      sr.Watchers,
		OpenIssues:    sr.OpenIssues,
		Size:          sr.Size,
		Created:       formatDate(sr.CreatedAt),
		Updated:       formatDate(sr.UpdatedAt),
		Private:       sr.Private,
		Archived:      sr.Archived,
		ReferenceURL:  reference,
		Links: []link{
			{Label: "Source", URL: canonical},
			{Label: "Edit", URL: editorBase + owner + "/" + name},
			{Label: "Chat", URL: chatBase + url.QueryEscape("Help me with "+reference)},
			{Label: "Reference", URL: reference},
		},
	}
	if sr.Homepage != nil {
		rv.HomepageURL = *sr.Homepage
	}
	if len(sr.Topics) > 0 {
		rv.Topics = strings.Join(sr.Topics, ", ")
	}
	if sr.DefaultBranch == "" {
		rv.DefaultBranch = Placeholder
	}

	if sr.Deploy != nil {
		rv.Deploy = buildDeployView(sr, canonical)
	}
	return rv
}

func buildDeployView(sr *domain.SnapshotRepository, canonical string) *deployView {
	cfg := sr.Deploy
	service := cfg.ServiceName(sr.Name)
	console := consoleBase + url.PathEscape(service) + "/production"

	dv := &deployView{
		Source:      cfg.Source,
		ServiceName: service,
		Main:        orPlaceholder(cfg.Main),
		Links: []link{
			{Label: "Deploy", URL: deployBase + url.QueryEscape(canonical)},
			{Label: "Configure CI", URL: console + "/settings/builds"},
			{Label: "Configuration", URL: console + "/settings"},
			{Label: "Deployments", URL: console + "/deployments"},
		},
	}
	for _, pattern := range cfg.Routes {
		dv.Routes = append(dv.Routes, routeLink{
			Pattern:    pattern,
			URL:        routeURL(pattern),
			ConsoleURL: console + "/domains?route=" + url.QueryEscape(pattern),
		})
	}
	for _, b := range cfg.Bindings {
		dv.Bindings = append(dv.Bindings, bindingView{Kind: string(b.Kind), ID: b.ID})
	}
	return dv
}

// routeURL turns a route pattern such as "*.example.com/api/*" into a visitable URL
func routeURL(pattern string) string {
	p := strings.TrimPrefix(strings.TrimPrefix(pattern, "https://"), "http://")
	p = strings.TrimPrefix(p, "*.")
	p = strings.TrimPrefix(p, "*")
	if i := strings.Index(p, "*"); i >= 0 {
		p = p[:i]
	}
	if !strings.Contains(p, "/") {
		p += "/"
	}
	return "https://" + p
}

// orPlaceholder collapses whitespace so multi-line text cannot break either layout
func orPlaceholder(s *string) string {
	if s == nil {
		return Placeholder
	}
	v := strings.Join(strings.Fields(*s), " ")
	if v == "" {
		return Placeholder
	}
	return v
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.UTC().Format("2006-01-02")
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.UTC().Format(time.RFC3339)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}
