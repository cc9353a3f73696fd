package naming

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"gocloud.dev/blob"
)

// filePattern matches filenames produced by the pipeline: image_<n>.<ext>.
var filePattern = regexp.MustCompile(`^image_(\d+)\.\w+$`)

// DefaultExtension is used when a content type is unrecognized. Defaulting
// to jpg keeps the legacy behavior of never writing extension-less files.
const DefaultExtension = "jpg"

// extensions maps MIME types to file extensions.
var extensions = map[string]string{
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/png":     "png",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
	"image/svg+xml": "svg",
}

// urlSuffixes are probed, in order, when the content type is unknown.
var urlSuffixes = []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "svg"}

// StartingNumber scans the destination for existing image_<n>.<ext> entries
// and returns one past the highest number found, or 1 if none match.
// Unrelated entries are ignored, so a previously used directory can be
// resumed without overwriting earlier downloads.
func StartingNumber(ctx context.Context, bucket *blob.Bucket) (int, error) {
	iter := bucket.List(nil)
	max := 0

	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("list destination: %w", err)
		}

		m := filePattern.FindStringSubmatch(path.Base(obj.Key))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return max + 1, nil
}

// Filename builds the output name for sequence number n.
func Filename(n int, ext string) string {
	return fmt.Sprintf("image_%d.%s", n, ext)
}

// ExtensionFor maps a MIME content type to a file extension. Matching is
// case-insensitive and ignores parameters ("image/png; charset=binary").
// Unrecognized types map to DefaultExtension.
func ExtensionFor(contentType string) string {
	if ext, ok := lookup(contentType); ok {
		return ext
	}
	return DefaultExtension
}

// ExtensionForURL resolves an extension from the content type, falling back
// to a known suffix embedded in the URL before defaulting.
func ExtensionForURL(contentType, url string) string {
	if ext, ok := lookup(contentType); ok {
		return ext
	}

	lower := strings.ToLower(url)
	for _, ext := range urlSuffixes {
		if strings.Contains(lower, "."+ext) {
			if ext == "jpeg" {
				return "jpg"
			}
			return ext
		}
	}

	return DefaultExtension
}

func lookup(contentType string) (string, bool) {
	mainType, _, _ := strings.Cut(contentType, ";")
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(mainType))]
	return ext, ok
}
