// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns arbitrary strings into URL- and key-safe names.
package slug

import (
	"path"
	"regexp"
	"strings"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space, or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s_-]`)
	// separators turns runs of spaces and underscores into one hyphen.
	separators = regexp.MustCompile(`[\s_]+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// fallbackName replaces a filename that slugs down to nothing.
const fallbackName = "file"

// Generate creates a URL-friendly slug from the given string.
// Example: "Week 3: Cells & Tissues" → "week-3-cells-tissues"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = separators.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Filename slugs the base name and extension of an uploaded file
// separately so the extension survives. "Lab Report (final).PDF" becomes
// "lab-report-final.pdf".
func Filename(name string) string {
	ext := path.Ext(name)
	base := Generate(strings.TrimSuffix(name, ext))
	if base == "" {
		base = fallbackName
	}
	if ext = Generate(strings.TrimPrefix(ext, ".")); ext != "" {
		return base + "." + ext
	}
	return base
}
