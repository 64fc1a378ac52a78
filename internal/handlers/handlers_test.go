package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"coursesite/internal/access"
	"coursesite/internal/menu"
	"coursesite/internal/middleware"
	"coursesite/internal/models"
	"coursesite/internal/prefs"
	"coursesite/internal/session"
	"coursesite/internal/sites"
	"coursesite/internal/storage"
	"coursesite/internal/store"
	"coursesite/internal/store/memstore"
)

const (
	course   = 1
	manager  = 1
	student  = 3
	student2 = 4
)

var managerActor = access.Actor{UserID: manager}

type testEnv struct {
	repo  *memstore.Store
	svc   *sites.Service
	prefs *prefs.Store
	files *storage.Memory
	api   *API
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := memstore.New()
	repo.Enrol(course, manager, models.RoleManager)
	repo.Enrol(course, student, models.RoleStudent)
	repo.Enrol(course, student2, models.RoleStudent)

	files := storage.NewMemory()
	resolver := access.NewResolver(repo, repo)
	svc := sites.New(repo, repo, resolver, menu.NewExpander(repo, resolver, "https://example.test"), files)
	p := prefs.NewStore(client)
	return &testEnv{
		repo:  repo,
		svc:   svc,
		prefs: p,
		files: files,
		api:   New(svc, session.NewStore(client, false), p),
	}
}

// site creates a single-site course website owned by the manager.
func (e *testEnv) site(t *testing.T) *models.Site {
	t.Helper()
	site, err := e.svc.CreateSite(context.Background(), managerActor, sites.NewSite{CourseID: course, Name: "Biology"})
	if err != nil {
		t.Fatalf("CreateSite: %v", err)
	}
	return site
}

// section adds a section with n editor blocks to the homepage.
func (e *testEnv) section(t *testing.T, site *models.Site, n int) (*models.Section, []int64) {
	t.Helper()
	ctx := context.Background()
	sec, err := e.svc.AddSection(ctx, managerActor, site.ID, site.Options.HomepageID,
		sites.SectionInput{Layout: models.LayoutRightFixed})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	var ids []int64
	for i := 0; i < n; i++ {
		b, err := e.svc.AddBlock(ctx, managerActor, site.ID, sec.ID, sites.BlockInput{
			Type:    models.BlockEditor,
			Content: json.RawMessage(`{"html":"<p>x</p>"}`),
		})
		if err != nil {
			t.Fatalf("AddBlock: %v", err)
		}
		ids = append(ids, b.ID)
	}
	return sec, ids
}

// call invokes h with chi URL params and the actor in context. A string
// body is sent verbatim, anything else is JSON-encoded.
func call(h http.HandlerFunc, method string, body any, actor access.Actor, params map[string]string) *httptest.ResponseRecorder {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, "/", rdr)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithActor(ctx, actor)

	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func ajax(e *testEnv, siteID int64, actor access.Actor, action string, data any) *httptest.ResponseRecorder {
	return call(e.api.Ajax, http.MethodPost, map[string]any{"action": action, "data": data}, actor,
		map[string]string{"siteID": itoa(siteID)})
}

func itoa(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

type errorBody struct {
	Code    string              `json:"code"`
	Error   string              `json:"error"`
	Details []models.FieldError `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func TestAjaxReorderBlocks(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	sec, ids := e.section(t, site, 3)

	want := []int64{ids[2], ids[0], ids[1]}
	rec := ajax(e, site.ID, managerActor, "reorder_blocks", map[string]any{
		"sectionid": sec.ID,
		"blocks":    want,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Action string `json:"action"`
		Result struct {
			Blocks []int64 `json:"blocks"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Action != "reorder_blocks" || !reflect.DeepEqual(resp.Result.Blocks, want) {
		t.Errorf("response: got %+v, want blocks %v", resp, want)
	}

	got, _ := e.repo.FindSection(context.Background(), sec.ID, store.Live)
	if !reflect.DeepEqual(got.BlockIDs, want) {
		t.Errorf("stored order: got %v, want %v", got.BlockIDs, want)
	}
}

func TestAjaxReorderSectionsRejectsForeignIDs(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	sec, _ := e.section(t, site, 0)

	rec := ajax(e, site.ID, managerActor, "reorder_sections", map[string]any{
		"pageid":   site.Options.HomepageID,
		"sections": []int64{sec.ID, 9999},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409: %s", rec.Code, rec.Body)
	}
	if body := decodeError(t, rec); body.Code != "invalid_reference" {
		t.Errorf("code: got %q, want invalid_reference", body.Code)
	}
}

func TestAjaxUnknownAction(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)

	rec := ajax(e, site.ID, managerActor, "drop_tables", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "unknown_action" {
		t.Errorf("code: got %q, want unknown_action", body.Code)
	}
}

func TestAjaxMissingData(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)

	rec := call(e.api.Ajax, http.MethodPost, `{"action":"delete_block"}`, managerActor,
		map[string]string{"siteID": itoa(site.ID)})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
	body := decodeError(t, rec)
	if len(body.Details) != 1 || body.Details[0].Field != "data" {
		t.Errorf("details: got %+v, want data field", body.Details)
	}
}

func TestAjaxDeleteAndRestoreBlock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t)
	_, ids := e.section(t, site, 1)

	rec := ajax(e, site.ID, managerActor, "delete_block", map[string]any{"id": ids[0]})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: got %d: %s", rec.Code, rec.Body)
	}
	if b, _ := e.repo.FindBlock(ctx, ids[0], store.Live); b != nil {
		t.Fatal("block still live after delete_block")
	}

	// A restore naming another site is refused.
	rec = ajax(e, site.ID, managerActor, "restore_deleted", map[string]any{
		"id": ids[0], "type": "block", "siteid": site.ID + 100,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign site restore: got %d, want 404", rec.Code)
	}

	rec = ajax(e, site.ID, managerActor, "restore_deleted", map[string]any{
		"id": ids[0], "type": "block", "siteid": site.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: got %d: %s", rec.Code, rec.Body)
	}
	if b, _ := e.repo.FindBlock(ctx, ids[0], store.Live); b == nil {
		t.Fatal("block not restored")
	}
}

func TestAjaxDeleteAcceptsBareID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t)
	sec, ids := e.section(t, site, 1)

	rec := ajax(e, site.ID, managerActor, "delete_block", ids[0])
	if rec.Code != http.StatusOK {
		t.Fatalf("delete_block: got %d: %s", rec.Code, rec.Body)
	}
	if b, _ := e.repo.FindBlock(ctx, ids[0], store.Live); b != nil {
		t.Error("block still live after delete_block")
	}

	rec = ajax(e, site.ID, managerActor, "delete_section", sec.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete_section: got %d: %s", rec.Code, rec.Body)
	}
	if s, _ := e.repo.FindSection(ctx, sec.ID, store.Live); s != nil {
		t.Error("section still live after delete_section")
	}

	rec = ajax(e, site.ID, managerActor, "delete_page", "home")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("non-numeric id: got %d, want 422", rec.Code)
	}
}

func TestAjaxRestoreRejectsBadType(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)

	rec := ajax(e, site.ID, managerActor, "restore_deleted", map[string]any{"id": 1, "type": "menu"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
}

func TestAjaxDeleteHomepage(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)

	rec := ajax(e, site.ID, managerActor, "delete_page", map[string]any{"id": site.Options.HomepageID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "homepage_protected" {
		t.Errorf("code: got %q, want homepage_protected", body.Code)
	}
}

func TestAjaxDeleteWithoutRights(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	sec, _ := e.section(t, site, 0)

	rec := ajax(e, site.ID, access.Actor{UserID: student}, "delete_section", map[string]any{"id": sec.ID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", rec.Code)
	}
	if s, _ := e.repo.FindSection(context.Background(), sec.ID, store.Live); s == nil {
		t.Error("section deleted without edit rights")
	}
}

func TestAjaxMoveBlock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t)
	from, ids := e.section(t, site, 2)
	to, _ := e.section(t, site, 0)

	rec := ajax(e, site.ID, managerActor, "move_block", map[string]any{
		"id": ids[0], "from": from.ID, "to": to.ID, "position": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}

	gotFrom, _ := e.repo.FindSection(ctx, from.ID, store.Live)
	gotTo, _ := e.repo.FindSection(ctx, to.ID, store.Live)
	if !reflect.DeepEqual(gotFrom.BlockIDs, []int64{ids[1]}) {
		t.Errorf("source: got %v, want [%d]", gotFrom.BlockIDs, ids[1])
	}
	if !reflect.DeepEqual(gotTo.BlockIDs, []int64{ids[0]}) {
		t.Errorf("target: got %v, want [%d]", gotTo.BlockIDs, ids[0])
	}
}

func TestAjaxUpdateMode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t)

	rec := ajax(e, site.ID, managerActor, "update_mode", map[string]any{"mode": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}
	if on, _ := e.prefs.EditMode(ctx, manager); !on {
		t.Error("edit mode not stored")
	}

	rec = ajax(e, site.ID, managerActor, "update_mode", map[string]any{"mode": 3})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("mode 3: got %d, want 422", rec.Code)
	}

	rec = ajax(e, site.ID, access.Actor{}, "update_mode", map[string]any{"mode": 1})
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous: got %d, want 403", rec.Code)
	}
}

func TestAjaxCopySection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	site := e.site(t)
	sec, _ := e.section(t, site, 2)

	rec := ajax(e, site.ID, managerActor, "copy_section", map[string]any{
		"id": sec.ID, "pageid": site.Options.HomepageID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}
	home, _ := e.repo.FindPage(ctx, site.Options.HomepageID, store.Live)
	if len(home.SectionIDs) != 2 {
		t.Errorf("sections: got %v, want two", home.SectionIDs)
	}
}

func TestCreateSiteHandler(t *testing.T) {
	e := newEnv(t)

	rec := call(e.api.CreateSite, http.MethodPost, map[string]any{
		"courseid": course, "name": "Chemistry", "hometitle": "Welcome",
	}, managerActor, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body)
	}
	var site models.Site
	if err := json.NewDecoder(rec.Body).Decode(&site); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if site.ID == 0 || site.Name != "Chemistry" || site.Options.HomepageID == 0 {
		t.Errorf("site: got %+v", site)
	}
}

func TestErrorMapping(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	siteParam := map[string]string{"siteID": itoa(site.ID)}

	tests := []struct {
		name   string
		rec    *httptest.ResponseRecorder
		status int
		code   string
	}{
		{
			name:   "validation",
			rec:    call(e.api.CreateSite, http.MethodPost, map[string]any{"courseid": course, "name": "  "}, managerActor, nil),
			status: http.StatusUnprocessableEntity,
			code:   "validation_failed",
		},
		{
			name:   "malformed json",
			rec:    call(e.api.CreateSite, http.MethodPost, `{"courseid":`, managerActor, nil),
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "unknown field",
			rec:    call(e.api.CreatePage, http.MethodPost, map[string]any{"title": "x", "slug": "x"}, managerActor, siteParam),
			status: http.StatusBadRequest,
			code:   "bad_request",
		},
		{
			name:   "missing site",
			rec:    call(e.api.GetSite, http.MethodGet, nil, managerActor, map[string]string{"siteID": "9999"}),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "bad id",
			rec:    call(e.api.GetSite, http.MethodGet, nil, managerActor, map[string]string{"siteID": "abc"}),
			status: http.StatusNotFound,
			code:   "not_found",
		},
		{
			name:   "forbidden",
			rec:    call(e.api.CreatePage, http.MethodPost, map[string]any{"title": "Mine"}, access.Actor{UserID: student2}, siteParam),
			status: http.StatusForbidden,
			code:   "forbidden",
		},
		{
			name: "hide homepage",
			rec: call(e.api.UpdatePage, http.MethodPut, map[string]any{"title": "Home", "hidden": true}, managerActor,
				map[string]string{"siteID": itoa(site.ID), "pageID": itoa(site.Options.HomepageID)}),
			status: http.StatusConflict,
			code:   "homepage_protected",
		},
		{
			name:   "menu reference",
			rec:    call(e.api.PutMenu, http.MethodPut, map[string]any{"items": []map[string]any{{"pageid": 9999}}}, managerActor, siteParam),
			status: http.StatusConflict,
			code:   "invalid_reference",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rec.Code != tt.status {
				t.Fatalf("status: got %d, want %d: %s", tt.rec.Code, tt.status, tt.rec.Body)
			}
			if body := decodeError(t, tt.rec); body.Code != tt.code {
				t.Errorf("code: got %q, want %q", body.Code, tt.code)
			}
		})
	}
}

func TestValidationDetails(t *testing.T) {
	e := newEnv(t)

	rec := call(e.api.CreateSite, http.MethodPost, map[string]any{"name": "Biology"}, managerActor, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d, want 422", rec.Code)
	}
	body := decodeError(t, rec)
	if len(body.Details) == 0 || body.Details[0].Field != "courseid" {
		t.Errorf("details: got %+v, want courseid", body.Details)
	}
}

func TestAttachFileHandler(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	_, ids := e.section(t, site, 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("lecture notes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("siteID", itoa(site.ID))
	rctx.URLParams.Add("blockID", itoa(ids[0]))
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	req = req.WithContext(middleware.WithActor(ctx, managerActor))

	rec := httptest.NewRecorder()
	e.api.AttachFile(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rec.Code, rec.Body)
	}
	var f models.BlockFile
	if err := json.NewDecoder(rec.Body).Decode(&f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Filename != "notes.txt" || f.Area != models.AreaContent || !strings.HasPrefix(f.ContentType, "text/plain") {
		t.Errorf("file: got %+v", f)
	}
	if len(e.files.Keys()) != 1 {
		t.Errorf("stored objects: got %v, want one", e.files.Keys())
	}
}

func TestListFilesHandler(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	_, ids := e.section(t, site, 1)
	if _, err := e.svc.AttachFile(context.Background(), managerActor, site.ID, ids[0], sites.FileUpload{
		Area: models.AreaContent, Filename: "a.txt", ContentType: "text/plain", Size: 1, Body: strings.NewReader("a"),
	}); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	rec := call(e.api.ListFiles, http.MethodGet, nil, access.Actor{UserID: student},
		map[string]string{"siteID": itoa(site.ID), "blockID": itoa(ids[0])})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Files []struct {
			Filename string `json:"filename"`
			URL      string `json:"url"`
		} `json:"files"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if len(body.Files) != 1 || body.Files[0].URL == "" {
		t.Errorf("files: got %+v", body.Files)
	}

	rec = call(e.api.ListFiles, http.MethodGet, nil, access.Actor{},
		map[string]string{"siteID": itoa(site.ID), "blockID": itoa(ids[0])})
	if rec.Code != http.StatusForbidden {
		t.Errorf("anonymous: got %d, want 403", rec.Code)
	}
}

func TestAttachFileWithoutFile(t *testing.T) {
	e := newEnv(t)
	site := e.site(t)
	_, ids := e.section(t, site, 1)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("area", "content")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("siteID", itoa(site.ID))
	rctx.URLParams.Add("blockID", itoa(ids[0]))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	e.api.AttachFile(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestDevLoginAndLogout(t *testing.T) {
	e := newEnv(t)

	rec := call(e.api.DevLogin, http.MethodPost, map[string]any{"userid": student, "courseid": course}, access.Actor{}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d: %s", rec.Code, rec.Body)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie set")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	data, err := e.api.sessions.Get(context.Background(), req)
	if err != nil || data == nil || data.UserID != student || data.CourseID != course {
		t.Fatalf("session: got %+v, %v", data, err)
	}

	out := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	e.api.Logout(out, req)
	if out.Code != http.StatusNoContent {
		t.Fatalf("logout: got %d, want 204", out.Code)
	}
	if data, _ := e.api.sessions.Get(context.Background(), req); data != nil {
		t.Error("session survived logout")
	}
}

func TestDevLoginRejectsMissingUser(t *testing.T) {
	e := newEnv(t)

	rec := call(e.api.DevLogin, http.MethodPost, map[string]any{"courseid": course}, access.Actor{}, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want 422", rec.Code)
	}
}
