package storage

import (
	"mime"
	"path"
)

const defaultContentType = "application/octet-stream"

var inlineTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
}

// ContentType guesses the MIME type of name from its extension.
func ContentType(name string) string {
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		return defaultContentType
	}
	return ct
}

// PreviewDisposition returns the Content-Disposition a preview URL should
// carry: inline for types browsers can render, attachment for the rest.
func PreviewDisposition(name string) string {
	kind := "attachment"
	if mediaType, _, err := mime.ParseMediaType(ContentType(name)); err == nil && inlineTypes[mediaType] {
		kind = "inline"
	}

	if d := mime.FormatMediaType(kind, map[string]string{"filename": name}); d != "" {
		return d
	}
	return kind
}
