package document

import (
	"mime"
	"path/filepath"
	"strings"
)

// Well-known MIME types the build dispatches on.
const (
	MimeMarkdown    = "text/markdown"
	MimeHandlebars  = "text/x-handlebars-template"
	MimeHTML        = "text/html"
	MimeJSON        = "application/json"
	MimeOctetStream = "application/octet-stream"
)

// extensionTypes takes precedence over the platform registry so classification does not
// depend on the host's mime.types files.
var extensionTypes = map[string]string{
	".md":         MimeMarkdown,
	".markdown":   MimeMarkdown,
	".hbs":        MimeHandlebars,
	".handlebars": MimeHandlebars,
	".html":       MimeHTML,
	".htm":        MimeHTML,
	".json":       MimeJSON,
	".css":        "text/css",
	".js":         "text/javascript",
	".txt":        "text/plain",
	".xml":        "text/xml",
	".svg":        "image/svg+xml",
	".png":        "image/png",
	".jpg":        "image/jpeg",
	".jpeg":       "image/jpeg",
	".gif":        "image/gif",
	".webp":       "image/webp",
	".ico":        "image/x-icon",
	".woff":       "font/woff",
	".woff2":      "font/woff2",
	".pdf":        "application/pdf",
	".mp3":        "audio/mpeg",
	".m4a":        "audio/mp4",
	".mp4":        "video/mp4",
	".ogg":        "audio/ogg",
	".oga":        "audio/ogg",
	".opus":       "audio/ogg",
	".wav":        "audio/wav",
	".flac":       "audio/flac",
	".aac":        "audio/aac",
	".webm":       "video/webm",
}

// MimeType infers a MIME type (without parameters) from the file extension.
// Unknown extensions are application/octet-stream.
func MimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return MimeOctetStream
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			// Platform registries disagree on .m4a; players expect audio/mp4.
			if mediaType == "audio/x-m4a" || mediaType == "audio/m4a" {
				return "audio/mp4"
			}
			return mediaType
		}
	}
	return MimeOctetStream
}

// MajorType returns the part of a MIME type before the slash.
func MajorType(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	return major
}

func isMarkdownExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown":
		return true
	}
	return false
}
