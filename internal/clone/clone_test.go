package clone

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"coursesite/internal/models"
	"coursesite/internal/storage"
	"coursesite/internal/store"
	"coursesite/internal/store/memstore"
)

// flakyFiles fails every CopyFile after the first okCopies.
type flakyFiles struct {
	*storage.Memory
	okCopies int
}

func (f *flakyFiles) CopyFile(ctx context.Context, src, dst string) error {
	if f.okCopies == 0 {
		return errors.New("storage unavailable")
	}
	f.okCopies--
	return f.Memory.CopyFile(ctx, src, dst)
}

type source struct {
	site     *models.Site
	home     *models.Page
	child    *models.Page
	sections []int64
	blocks   []int64
}

// buildSource creates a site with homepage 'Intro' and a child page, a
// menu [{home, children: [{child}]}], two sections on the homepage, and
// three blocks. One section and one block are soft-deleted.
func buildSource(t *testing.T, repo *memstore.Store, files *storage.Memory) *source {
	t.Helper()
	ctx := context.Background()
	src := &source{}

	src.site = &models.Site{CourseID: 1, OwnerID: 5, Name: "template", IsTemplate: true}
	must(t, repo.CreateSite(ctx, src.site))
	src.home = &models.Page{SiteID: src.site.ID, Title: "Intro"}
	must(t, repo.CreatePage(ctx, src.home))
	src.child = &models.Page{SiteID: src.site.ID, Title: "Child"}
	must(t, repo.CreatePage(ctx, src.child))

	for i := 0; i < 3; i++ {
		b := &models.Block{SiteID: src.site.ID, Content: models.EditorContent{HTML: "block"}}
		must(t, repo.CreateBlock(ctx, b))
		src.blocks = append(src.blocks, b.ID)
	}
	button := &models.Block{SiteID: src.site.ID, Content: models.PictureButtonContent{
		Title: "Go", LinkType: models.LinkPage, PageID: src.child.ID,
	}}
	must(t, repo.CreateBlock(ctx, button))
	src.blocks = append(src.blocks, button.ID)

	key := models.BlockFileKey(src.site.ID, button.ID, models.AreaPictureButton, "pic.png")
	must(t, files.Upload(ctx, key, "image/png", strings.NewReader("png"), 3))
	must(t, repo.CreateBlockFile(ctx, &models.BlockFile{
		BlockID: button.ID, SiteID: src.site.ID, Area: models.AreaPictureButton,
		Filename: "pic.png", ContentType: "image/png", SizeBytes: 3, Key: key,
	}))

	for i := 0; i < 2; i++ {
		s := &models.Section{SiteID: src.site.ID, Layout: models.LayoutRightFixed}
		must(t, repo.CreateSection(ctx, s))
		src.sections = append(src.sections, s.ID)
	}
	must(t, repo.SetSectionBlocks(ctx, src.sections[0], []int64{src.blocks[2], src.blocks[0], src.blocks[1]}))
	must(t, repo.SetSectionBlocks(ctx, src.sections[1], []int64{src.blocks[3]}))
	must(t, repo.SetPageSections(ctx, src.home.ID, src.sections))

	menu := &models.Menu{SiteID: src.site.ID, Items: []models.MenuItem{
		{PageID: src.home.ID, Children: []models.MenuItem{{PageID: src.child.ID}}},
	}}
	must(t, repo.CreateMenu(ctx, menu))
	src.site.Options = models.SiteOptions{HomepageID: src.home.ID, MenuID: menu.ID}
	must(t, repo.UpdateSite(ctx, src.site))

	must(t, repo.SetDeleted(ctx, models.KindBlock, src.blocks[1], true))
	return src
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateFromTemplate(t *testing.T) {
	repo := memstore.New()
	files := storage.NewMemory()
	src := buildSource(t, repo, files)
	ctx := context.Background()

	dst := &models.Site{CourseID: 1, OwnerID: 6, Name: "copy"}
	m, err := NewEngine(repo, files).CreateFromTemplate(ctx, src.site.ID, dst, Options{})
	if err != nil {
		t.Fatalf("CreateFromTemplate: %v", err)
	}

	got, _ := repo.FindSite(ctx, dst.ID, store.Live)
	if got.Options.HomepageID != m.Pages[src.home.ID] || got.Options.MenuID == src.site.Options.MenuID {
		t.Fatalf("site options not remapped: %+v", got.Options)
	}

	// Menu points at the copied pages.
	menu, _ := repo.FindMenu(ctx, got.Options.MenuID)
	wantMenu := []models.MenuItem{
		{PageID: m.Pages[src.home.ID], Children: []models.MenuItem{{PageID: m.Pages[src.child.ID]}}},
	}
	if !reflect.DeepEqual(menu.Items, wantMenu) {
		t.Errorf("menu: got %+v, want %+v", menu.Items, wantMenu)
	}

	// Reference lists point at copies in order, deleted block dropped.
	home, _ := repo.FindPage(ctx, m.Pages[src.home.ID], store.Live)
	wantSections := []int64{m.Sections[src.sections[0]], m.Sections[src.sections[1]]}
	if !reflect.DeepEqual(home.SectionIDs, wantSections) {
		t.Errorf("page sections: got %v, want %v", home.SectionIDs, wantSections)
	}
	sec, _ := repo.FindSection(ctx, wantSections[0], store.Live)
	wantBlocks := []int64{m.Blocks[src.blocks[2]], m.Blocks[src.blocks[0]]}
	if !reflect.DeepEqual(sec.BlockIDs, wantBlocks) {
		t.Errorf("section blocks: got %v, want %v", sec.BlockIDs, wantBlocks)
	}
	if _, copied := m.Blocks[src.blocks[1]]; copied {
		t.Error("deleted block was copied")
	}

	// No copied row belongs to the source site.
	for _, id := range append(home.SectionIDs, sec.BlockIDs...) {
		for _, old := range append(src.sections, src.blocks...) {
			if id == old {
				t.Errorf("copied list references source id %d", id)
			}
		}
	}

	// Picture button link and attachment follow the copy.
	button, _ := repo.FindBlock(ctx, m.Blocks[src.blocks[3]], store.Live)
	pb := button.Content.(models.PictureButtonContent)
	if pb.PageID != m.Pages[src.child.ID] {
		t.Errorf("button page link: got %d, want %d", pb.PageID, m.Pages[src.child.ID])
	}
	copiedFiles, _ := repo.ListBlockFiles(ctx, button.ID)
	wantKey := models.BlockFileKey(dst.ID, button.ID, models.AreaPictureButton, "pic.png")
	if len(copiedFiles) != 1 || copiedFiles[0].Key != wantKey {
		t.Fatalf("block files: %+v", copiedFiles)
	}
	if data, err := files.Download(ctx, wantKey); err != nil || string(data) != "png" {
		t.Errorf("copied object: %q, %v", data, err)
	}
}

func TestCloneSiteMissingSource(t *testing.T) {
	repo := memstore.New()
	ctx := context.Background()
	dst := &models.Site{CourseID: 1}
	repo.CreateSite(ctx, dst)

	_, err := NewEngine(repo, nil).CloneSite(ctx, 4040, dst, Options{})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if pages, _ := repo.ListPages(ctx, dst.ID, store.WithDeleted); len(pages) != 0 {
		t.Errorf("pages written: %v", pages)
	}
}

func TestCloneSiteRollsBack(t *testing.T) {
	repo := memstore.New()
	mem := storage.NewMemory()
	src := buildSource(t, repo, mem)
	ctx := context.Background()

	// A second attachment makes the second copy fail after the first
	// object was written.
	button := src.blocks[3]
	key := models.BlockFileKey(src.site.ID, button, models.AreaButtonFile, "doc.pdf")
	mem.Upload(ctx, key, "application/pdf", strings.NewReader("pdf"), 3)
	repo.CreateBlockFile(ctx, &models.BlockFile{BlockID: button, SiteID: src.site.ID, Area: models.AreaButtonFile, Filename: "doc.pdf", Key: key})
	before := mem.Keys()

	dst := &models.Site{CourseID: 1}
	repo.CreateSite(ctx, dst)
	_, err := NewEngine(repo, &flakyFiles{Memory: mem, okCopies: 1}).CloneSite(ctx, src.site.ID, dst, Options{})
	if err == nil {
		t.Fatal("expected clone to fail")
	}

	if pages, _ := repo.ListPages(ctx, dst.ID, store.WithDeleted); len(pages) != 0 {
		t.Errorf("partial copy left %d pages", len(pages))
	}
	if menus, _ := repo.ListMenus(ctx, dst.ID); len(menus) != 0 {
		t.Errorf("partial copy left %d menus", len(menus))
	}
	if got := mem.Keys(); !reflect.DeepEqual(got, before) {
		t.Errorf("copied objects not cleaned up: %v", got)
	}
}

func TestPagePerStudent(t *testing.T) {
	repo := memstore.New()
	files := storage.NewMemory()
	src := buildSource(t, repo, files)
	ctx := context.Background()

	pages, err := NewEngine(repo, files).PagePerStudent(ctx, src.home.ID, []int64{30, 31}, 5)
	if err != nil {
		t.Fatalf("PagePerStudent: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages: got %d", len(pages))
	}

	for i, student := range []int64{30, 31} {
		p := pages[i]
		if p.SiteID != src.site.ID || p.Title != "Intro" {
			t.Errorf("page %d: %+v", i, p)
		}
		ok, _ := repo.HasPermission(ctx, models.ResourcePage, p.ID, student)
		if !ok {
			t.Errorf("student %d has no grant on page %d", student, p.ID)
		}
		if len(p.SectionIDs) != 2 || p.SectionIDs[0] == src.sections[0] {
			t.Errorf("page %d sections not copied: %v", p.ID, p.SectionIDs)
		}
	}
	if pages[0].SectionIDs[0] == pages[1].SectionIDs[0] {
		t.Error("students share a section")
	}

	menu, _ := repo.FindMenu(ctx, src.site.Options.MenuID)
	if len(menu.Items) != 3 || menu.Items[1].PageID != pages[0].ID || menu.Items[2].PageID != pages[1].ID {
		t.Errorf("menu: %+v", menu.Items)
	}
}

func TestPagePerStudentRollsBack(t *testing.T) {
	repo := memstore.New()
	mem := storage.NewMemory()
	src := buildSource(t, repo, mem)
	ctx := context.Background()
	before := mem.Keys()
	pagesBefore, _ := repo.ListPages(ctx, src.site.ID, store.WithDeleted)

	// The first student's attachment copies, the second student's fails.
	_, err := NewEngine(repo, &flakyFiles{Memory: mem, okCopies: 1}).PagePerStudent(ctx, src.home.ID, []int64{30, 31}, 5)
	if err == nil {
		t.Fatal("expected distribution to fail")
	}

	if got := mem.Keys(); !reflect.DeepEqual(got, before) {
		t.Errorf("copied objects not cleaned up: %v", got)
	}
	if pages, _ := repo.ListPages(ctx, src.site.ID, store.WithDeleted); len(pages) != len(pagesBefore) {
		t.Errorf("partial distribution left %d pages, want %d", len(pages), len(pagesBefore))
	}
	if menu, _ := repo.FindMenu(ctx, src.site.Options.MenuID); len(menu.Items) != 1 {
		t.Errorf("menu: %+v", menu.Items)
	}

	// A retry after the failure does not collide with leftover objects.
	pages, err := NewEngine(repo, mem).PagePerStudent(ctx, src.home.ID, []int64{30, 31}, 5)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(pages) != 2 || len(mem.Keys()) != len(before)+2 {
		t.Errorf("retry: pages %d, objects %v", len(pages), mem.Keys())
	}
}

func TestCloneSectionAppends(t *testing.T) {
	repo := memstore.New()
	files := storage.NewMemory()
	src := buildSource(t, repo, files)
	ctx := context.Background()

	sec, m, err := NewEngine(repo, files).CloneSection(ctx, src.sections[0], src.child.ID)
	if err != nil {
		t.Fatalf("CloneSection: %v", err)
	}
	child, _ := repo.FindPage(ctx, src.child.ID, store.Live)
	if !reflect.DeepEqual(child.SectionIDs, []int64{sec.ID}) {
		t.Errorf("child sections: %v", child.SectionIDs)
	}
	want := []int64{m.Blocks[src.blocks[2]], m.Blocks[src.blocks[0]]}
	if !reflect.DeepEqual(sec.BlockIDs, want) {
		t.Errorf("blocks: got %v, want %v", sec.BlockIDs, want)
	}
	if sec.Layout != models.LayoutRightFixed {
		t.Errorf("layout: got %d", sec.Layout)
	}
}

func TestRewriteLinks(t *testing.T) {
	pages := map[int64]int64{10: 110, 11: 111}
	tests := []struct {
		in, want string
	}{
		{`<a href="/sites/1/pages/10">x</a>`, `<a href="/sites/2/pages/110">x</a>`},
		{`/sites/1/pages/11 and /sites/1/pages/12`, `/sites/2/pages/111 and /sites/1/pages/12`},
		{`/sites/3/pages/10`, `/sites/3/pages/10`},
		{``, ``},
	}
	for _, tt := range tests {
		if got := RewriteLinks(tt.in, 1, 2, pages); got != tt.want {
			t.Errorf("RewriteLinks(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCloneSiteRewritesEmbeddedLinks(t *testing.T) {
	repo := memstore.New()
	files := storage.NewMemory()
	src := buildSource(t, repo, files)
	ctx := context.Background()

	link := &models.Block{SiteID: src.site.ID, Content: models.EditorContent{
		HTML: `<a href="/sites/` + itoa(src.site.ID) + `/pages/` + itoa(src.child.ID) + `">next</a>`,
	}}
	repo.CreateBlock(ctx, link)

	dst := &models.Site{CourseID: 1}
	repo.CreateSite(ctx, dst)
	m, err := NewEngine(repo, files).CloneSite(ctx, src.site.ID, dst, Options{RewriteLinks: true})
	if err != nil {
		t.Fatalf("CloneSite: %v", err)
	}
	b, _ := repo.FindBlock(ctx, m.Blocks[link.ID], store.Live)
	want := `<a href="/sites/` + itoa(dst.ID) + `/pages/` + itoa(m.Pages[src.child.ID]) + `">next</a>`
	if got := b.Content.(models.EditorContent).HTML; got != want {
		t.Errorf("html: got %q, want %q", got, want)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
