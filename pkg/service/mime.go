package service

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// defaultMimeType is assigned when nothing more specific can be determined.
const defaultMimeType = "application/octet-stream"

// genericMimeTypes are client-supplied placeholders that carry no real
// information; a type in this set triggers detection from the filename and
// content.
var genericMimeTypes = map[string]bool{
	"application/octet-stream":   true,
	"application/download":       true,
	"application/force-download": true,
	"octet/stream":               true,
	"application/unknown":        true,
}

// knownExtensions pins the content types for extensions whose platform
// mime.types entries are unreliable or absent.
var knownExtensions = map[string]string{
	".doc":  "application/msword",
	".xls":  "application/vnd.ms-excel",
	".ppt":  "application/vnd.ms-powerpoint",
	".pdf":  "application/pdf",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".jpe":  "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".png":  "image/png",
	".bmp":  "image/bmp",
}

// resolveMimeType returns the most accurate content type for a file. A
// specific client-supplied type wins; otherwise the filename extension is
// consulted, then the leading content bytes are sniffed, and finally the
// generic default applies.
func resolveMimeType(filename, supplied string, head []byte) string {
	if supplied != "" && !genericMimeTypes[supplied] {
		return supplied
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != "" {
		if known, ok := knownExtensions[ext]; ok {
			return known
		}
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			// Strip parameters like "; charset=utf-8".
			if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
				return mediaType
			}
			return byExt
		}
	}

	if len(head) > 0 {
		if detected := mimetype.Detect(head); detected != nil {
			return detected.String()
		}
	}
	return defaultMimeType
}

// sniffLimit is how many leading bytes resolveMimeType gets to look at;
// matches the detector's own read limit.
const sniffLimit = 3072
