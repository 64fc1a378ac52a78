// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"fmt"
	"time"

	"coursesite/internal/slug"
)

// BlockType is the discriminator stored next to a block's content.
type BlockType string

const (
	BlockEditor        BlockType = "editor"
	BlockPictureButton BlockType = "picturebutton"
)

// BlockContent is the payload of a block. Exactly one implementation exists
// per BlockType: EditorContent and PictureButtonContent.
type BlockContent interface {
	BlockType() BlockType
}

// EditorContent is raw HTML produced by the rich-text editor.
type EditorContent struct {
	HTML string `json:"html"`
}

// BlockType implements BlockContent.
func (EditorContent) BlockType() BlockType { return BlockEditor }

// LinkType is where a picture button points.
type LinkType string

const (
	LinkContent LinkType = "content"
	LinkFile    LinkType = "file"
	LinkURL     LinkType = "url"
	LinkPage    LinkType = "page"
)

// Valid reports whether t is a known link type.
func (t LinkType) Valid() bool {
	switch t {
	case LinkContent, LinkFile, LinkURL, LinkPage:
		return true
	}
	return false
}

// PictureButtonContent is a clickable picture. Depending on LinkType it
// reveals nested HTML, opens an attached file, an external URL, or another
// page of the same site.
type PictureButtonContent struct {
	Title    string   `json:"title"`
	LinkType LinkType `json:"linktype"`
	Target   string   `json:"target,omitempty"`
	URL      string   `json:"url,omitempty"`
	PageID   int64    `json:"pageid,omitempty"`
	HTML     string   `json:"content,omitempty"`
}

// BlockType implements BlockContent.
func (PictureButtonContent) BlockType() BlockType { return BlockPictureButton }

// File areas a block can own attachments in.
const (
	AreaContent       = "content"
	AreaButtonFile    = "buttonfile"
	AreaPictureButton = "picturebutton"
)

// FileAreas lists the areas copied along with a block.
var FileAreas = []string{AreaContent, AreaButtonFile, AreaPictureButton}

// Block belongs to one site. Its position is defined purely by the
// BlockIDs list of the section referencing it.
type Block struct {
	ID        int64        `json:"id"`
	SiteID    int64        `json:"siteid"`
	Content   BlockContent `json:"-"`
	Hidden    bool         `json:"hidden"`
	Deleted   bool         `json:"deleted"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Type returns the discriminator of the block's content.
func (b *Block) Type() BlockType {
	if b.Content == nil {
		return ""
	}
	return b.Content.BlockType()
}

// MarshalJSON renders the content union as {"type": ..., "content": ...}.
func (b Block) MarshalJSON() ([]byte, error) {
	type plain Block
	return json.Marshal(struct {
		plain
		Type    BlockType    `json:"type"`
		Content BlockContent `json:"content"`
	}{plain(b), b.Type(), b.Content})
}

// EncodeContent serialises block content for storage. Editor content is
// stored as the bare HTML string, picture buttons as JSON.
func EncodeContent(c BlockContent) (BlockType, string, error) {
	switch v := c.(type) {
	case EditorContent:
		return BlockEditor, v.HTML, nil
	case *EditorContent:
		return BlockEditor, v.HTML, nil
	case PictureButtonContent:
		raw, err := json.Marshal(v)
		if err != nil {
			return "", "", fmt.Errorf("encode picturebutton: %w", err)
		}
		return BlockPictureButton, string(raw), nil
	case *PictureButtonContent:
		return EncodeContent(*v)
	case nil:
		return "", "", fmt.Errorf("encode block content: %w", ErrEmptyContent)
	}
	return "", "", fmt.Errorf("encode block content: unsupported %T", c)
}

// DecodeContent is the inverse of EncodeContent.
func DecodeContent(t BlockType, raw string) (BlockContent, error) {
	switch t {
	case BlockEditor:
		return EditorContent{HTML: raw}, nil
	case BlockPictureButton:
		var pb PictureButtonContent
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &pb); err != nil {
				return nil, fmt.Errorf("decode picturebutton: %w", err)
			}
		}
		return pb, nil
	}
	return nil, fmt.Errorf("decode block content: unknown type %q", t)
}

// DecodeContentJSON decodes a client payload of the form used by
// Block.MarshalJSON, where editor content is {"html": "..."}.
func DecodeContentJSON(t BlockType, raw json.RawMessage) (BlockContent, error) {
	switch t {
	case BlockEditor:
		var ec EditorContent
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ec); err != nil {
				return nil, fmt.Errorf("decode editor content: %w", err)
			}
		}
		return ec, nil
	case BlockPictureButton:
		return DecodeContent(t, string(raw))
	}
	return nil, fmt.Errorf("decode block content: unknown type %q", t)
}

// BlockFile is an attachment owned by a block, stored in object storage.
type BlockFile struct {
	ID          int64     `json:"id"`
	BlockID     int64     `json:"blockid"`
	SiteID      int64     `json:"siteid"`
	Area        string    `json:"area"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Key         string    `json:"key"`
	CreatedAt   time.Time `json:"created_at"`
}

// BlockFileKey builds the object storage key of an attachment. Keys are
// namespaced by site and block so a copied block never shares objects
// with its source. The filename is slugged.
func BlockFileKey(siteID, blockID int64, area, filename string) string {
	return fmt.Sprintf("sites/%d/blocks/%d/%s/%s", siteID, blockID, area, slug.Filename(filename))
}
