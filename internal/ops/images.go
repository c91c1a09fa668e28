package ops

import (
	"mime"
	"net/http"
	"strings"

	"casedesk/internal/apiclient"
)

type ImageLimits struct {
	MaxBytes int64
	MaxCount int
}

func DefaultImageLimits() ImageLimits {
	return ImageLimits{MaxBytes: 5 << 20, MaxCount: 5}
}

// validateImages checks every new image and the combined image count before
// an upload is attempted.
func (l ImageLimits) validateImages(retained int, images []apiclient.Image) error {
	if retained+len(images) > l.MaxCount {
		return invalid("a case can hold at most %d images", l.MaxCount)
	}
	for _, img := range images {
		if int64(len(img.Data)) > l.MaxBytes {
			return invalid("image %s must be less than %dMB", img.Filename, l.MaxBytes>>20)
		}
		if len(img.Data) == 0 {
			return invalid("image %s is empty", img.Filename)
		}
		if !isImageType(img.ContentType) || !isImageType(http.DetectContentType(img.Data)) {
			return invalid("%s is not an image", img.Filename)
		}
	}
	return nil
}

func isImageType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/")
}
