// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"io"
	"net/http"

	"coursesite/internal/middleware"
	"coursesite/internal/models"
	"coursesite/internal/sites"
)

// maxUploadSize is the largest accepted block attachment (50 MB).
const maxUploadSize = 50 << 20

// CreateSite creates a site with its homepage and menu.
func (a *API) CreateSite(w http.ResponseWriter, r *http.Request) {
	var in sites.NewSite
	if !decode(w, r, &in) {
		return
	}
	site, err := a.sites.CreateSite(r.Context(), middleware.ActorFromCtx(r.Context()), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

// GetSite returns a site with its menu expanded for the caller.
func (a *API) GetSite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	view, err := a.sites.ViewSite(r.Context(), middleware.ActorFromCtx(r.Context()), siteID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetMenu returns the expanded menu. ?backend=1 requests the editor
// export with hidden pages and stored titles.
func (a *API) GetMenu(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	backend := r.URL.Query().Get("backend") == "1"
	nodes, err := a.sites.Menu(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, backend)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nodes})
}

// PutMenu replaces the stored menu tree.
func (a *API) PutMenu(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var in struct {
		Items []models.MenuItem `json:"items"`
	}
	if !decode(w, r, &in) {
		return
	}
	items, err := a.sites.SetMenu(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, in.Items)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// CreatePage adds a page to a site.
func (a *API) CreatePage(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var in sites.PageInput
	if !decode(w, r, &in) {
		return
	}
	page, err := a.sites.CreatePage(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// GetPage returns a page with its visible sections, blocks, and menu.
func (a *API) GetPage(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	pageID, ok := urlID(w, r, "pageID")
	if !ok {
		return
	}
	view, err := a.sites.ViewPage(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, pageID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdatePage writes a page's title, hidden flag, and editing window.
func (a *API) UpdatePage(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	pageID, ok := urlID(w, r, "pageID")
	if !ok {
		return
	}
	var in sites.PageInput
	if !decode(w, r, &in) {
		return
	}
	page, err := a.sites.UpdatePage(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, pageID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// AddSection appends a new section to a page.
func (a *API) AddSection(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	pageID, ok := urlID(w, r, "pageID")
	if !ok {
		return
	}
	var in sites.SectionInput
	if !decode(w, r, &in) {
		return
	}
	section, err := a.sites.AddSection(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, pageID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

// UpdateSection writes a section's settings.
func (a *API) UpdateSection(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	sectionID, ok := urlID(w, r, "sectionID")
	if !ok {
		return
	}
	var in sites.SectionInput
	if !decode(w, r, &in) {
		return
	}
	section, err := a.sites.UpdateSection(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, sectionID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, section)
}

// AddBlock appends a new block to a section.
func (a *API) AddBlock(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	sectionID, ok := urlID(w, r, "sectionID")
	if !ok {
		return
	}
	var in sites.BlockInput
	if !decode(w, r, &in) {
		return
	}
	block, err := a.sites.AddBlock(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, sectionID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, block)
}

// UpdateBlock replaces a block's content.
func (a *API) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	blockID, ok := urlID(w, r, "blockID")
	if !ok {
		return
	}
	var in sites.BlockInput
	if !decode(w, r, &in) {
		return
	}
	block, err := a.sites.UpdateBlock(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, blockID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// AttachFile stores a multipart "file" upload on a block. The "area" form
// field names the file area and defaults to the content area.
func (a *API) AttachFile(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	blockID, ok := urlID(w, r, "blockID")
	if !ok {
		return
	}

	// Limit request body to maxUploadSize + some overhead for form fields.
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "file too large or malformed upload; maximum size is 50 MB", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "no file provided", nil)
		return
	}
	defer file.Close()

	// Detect content type by sniffing the first 512 bytes.
	sniff := make([]byte, 512)
	n, err := file.Read(sniff)
	if err != nil && err != io.EOF {
		fail(w, r, err)
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		fail(w, r, err)
		return
	}

	area := r.FormValue("area")
	if area == "" {
		area = models.AreaContent
	}
	f, err := a.sites.AttachFile(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, blockID, sites.FileUpload{
		Area:        area,
		Filename:    header.Filename,
		ContentType: http.DetectContentType(sniff[:n]),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// ListFiles returns a block's attachments with download links.
func (a *API) ListFiles(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	blockID, ok := urlID(w, r, "blockID")
	if !ok {
		return
	}
	files, err := a.sites.BlockFiles(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, blockID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// RecycleBin lists a site's deleted pages, sections, and blocks.
func (a *API) RecycleBin(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	items, err := a.sites.RecycleBin(r.Context(), middleware.ActorFromCtx(r.Context()), siteID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// SetEditors replaces the edit grants of the site or one of its pages.
func (a *API) SetEditors(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var in sites.EditorsInput
	if !decode(w, r, &in) {
		return
	}
	added, removed, err := a.sites.SetEditors(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added, "removed": removed})
}

// CopySite creates a new site from this one.
func (a *API) CopySite(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	var in sites.CopyInput
	if !decode(w, r, &in) {
		return
	}
	site, err := a.sites.CopySite(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, site)
}

// DistributePage copies a page once per listed student.
func (a *API) DistributePage(w http.ResponseWriter, r *http.Request) {
	siteID, ok := urlID(w, r, "siteID")
	if !ok {
		return
	}
	pageID, ok := urlID(w, r, "pageID")
	if !ok {
		return
	}
	var in sites.DistributeInput
	if !decode(w, r, &in) {
		return
	}
	pages, err := a.sites.DistributePage(r.Context(), middleware.ActorFromCtx(r.Context()), siteID, pageID, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"pages": pages})
}
