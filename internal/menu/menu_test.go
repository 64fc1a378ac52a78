package menu

import (
	"context"
	"testing"

	"coursesite/internal/access"
	"coursesite/internal/models"
	"coursesite/internal/store/memstore"
)

type fixture struct {
	repo *memstore.Store
	exp  *Expander
	site *models.Site
	home *models.Page
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memstore.New()
	repo.Enrol(1, 7, models.RoleStudent)

	site := &models.Site{CourseID: 1, OwnerID: 1}
	repo.CreateSite(ctx, site)
	home := &models.Page{SiteID: site.ID, Title: "Intro"}
	repo.CreatePage(ctx, home)
	site.Options.HomepageID = home.ID
	repo.UpdateSite(ctx, site)

	exp := NewExpander(repo, access.NewResolver(repo, repo), "https://example.test/")
	return &fixture{repo: repo, exp: exp, site: site, home: home}
}

func (f *fixture) page(t *testing.T, title string, hidden bool) *models.Page {
	t.Helper()
	p := &models.Page{SiteID: f.site.ID, Title: title, Hidden: hidden}
	if err := f.repo.CreatePage(context.Background(), p); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	return p
}

func titles(nodes []Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Title)
	}
	return out
}

func TestHomeLabel(t *testing.T) {
	f := newFixture(t)
	x := f.page(t, "Other", false)
	items := []models.MenuItem{{PageID: f.home.ID}, {PageID: x.ID}}
	student := access.Actor{UserID: 7}

	front, err := f.exp.Expand(context.Background(), f.site, items, View{Actor: student})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(front) != 2 || front[0].Title != HomeTitle || !front[0].IsHomepage {
		t.Errorf("front: %+v", front)
	}

	back, _ := f.exp.Expand(context.Background(), f.site, items, View{Actor: student, Backend: true})
	if back[0].Title != "Intro" {
		t.Errorf("backend title: got %q, want Intro", back[0].Title)
	}
}

func TestHomeLabelOnlyWhenLeading(t *testing.T) {
	f := newFixture(t)
	x := f.page(t, "", false)
	items := []models.MenuItem{{PageID: x.ID}, {PageID: f.home.ID}}

	nodes, _ := f.exp.Expand(context.Background(), f.site, items, View{Actor: access.Actor{UserID: 7}})
	got := titles(nodes)
	if len(got) != 2 || got[0] != UntitledPage || got[1] != "Intro" {
		t.Errorf("titles: %v", got)
	}
}

func TestPruning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.page(t, "A", false)
	gone := f.page(t, "Gone", false)
	hidden := f.page(t, "Hidden", true)
	child := f.page(t, "Child", false)
	f.repo.SetDeleted(ctx, models.KindPage, gone.ID, true)

	items := []models.MenuItem{
		{PageID: gone.ID, Children: []models.MenuItem{{PageID: child.ID}}},
		{PageID: 9999},
		{PageID: hidden.ID},
		{PageID: a.ID, Children: []models.MenuItem{{PageID: gone.ID}, {PageID: child.ID}}},
	}
	student := access.Actor{UserID: 7}

	nodes, err := f.exp.Expand(ctx, f.site, items, View{Actor: student})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(nodes) != 1 || nodes[0].PageID != a.ID {
		t.Fatalf("nodes: %+v", nodes)
	}
	if !nodes[0].HasChildren || len(nodes[0].Children) != 1 || nodes[0].Children[0].PageID != child.ID {
		t.Errorf("children: %+v", nodes[0].Children)
	}

	// The site owner in edit mode sees hidden pages.
	edit, _ := f.exp.Expand(ctx, f.site, items, View{Actor: access.Actor{UserID: 1, EditMode: true}})
	if got := titles(edit); len(got) != 2 || got[0] != "Hidden" {
		t.Errorf("edit mode titles: %v", got)
	}

	// Restoring the page brings it back without touching the menu.
	f.repo.SetDeleted(ctx, models.KindPage, gone.ID, false)
	nodes, _ = f.exp.Expand(ctx, f.site, items, View{Actor: student})
	if len(nodes) != 2 || nodes[0].PageID != gone.ID {
		t.Errorf("after restore: %+v", nodes)
	}
}

func TestPermissionFilter(t *testing.T) {
	f := newFixture(t)
	x := f.page(t, "X", false)
	items := []models.MenuItem{{PageID: f.home.ID}, {PageID: x.ID}}

	outsider := access.Actor{UserID: 99}
	nodes, _ := f.exp.Expand(context.Background(), f.site, items, View{Actor: outsider})
	if len(nodes) != 0 {
		t.Errorf("outsider sees %v", titles(nodes))
	}

	nodes, _ = f.exp.Expand(context.Background(), f.site, items, View{Actor: outsider, Backend: true})
	if len(nodes) != 2 {
		t.Errorf("backend export filtered: %v", titles(nodes))
	}
}

func TestNodeAttributes(t *testing.T) {
	f := newFixture(t)
	x := f.page(t, "X", false)
	items := []models.MenuItem{
		{PageID: f.home.ID},
		{PageID: x.ID, Attributes: &models.MenuAttributes{Target: models.TargetBlank}},
	}

	nodes, _ := f.exp.Expand(context.Background(), f.site, items, View{Editor: true})
	if nodes[0].Target != models.TargetSelf || nodes[1].Target != models.TargetBlank {
		t.Errorf("targets: %q %q", nodes[0].Target, nodes[1].Target)
	}
	want := PageURL("https://example.test", f.site.ID, x.ID)
	if nodes[1].URL != want {
		t.Errorf("url: got %q, want %q", nodes[1].URL, want)
	}
}
