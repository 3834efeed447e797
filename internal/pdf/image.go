package pdf

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime"
	"net/http"
)

// ImageInfo describes an embeddable raster.
type ImageInfo struct {
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Embeddable reports whether an upload's declared MIME type is one the
// stamper embeds. Parameters such as charset are ignored.
func Embeddable(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "image/png" || mediaType == "image/jpeg"
}

// ProbeImage reads the header of a PNG or JPEG. Any other content type is
// ErrUnsupportedImage.
func ProbeImage(data []byte) (*ImageInfo, error) {
	contentType := http.DetectContentType(data)

	var (
		cfg image.Config
		err error
	)
	switch contentType {
	case "image/png":
		cfg, err = png.DecodeConfig(bytes.NewReader(data))
	case "image/jpeg":
		cfg, err = jpeg.DecodeConfig(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	format := "png"
	if contentType == "image/jpeg" {
		format = "jpeg"
	}
	return &ImageInfo{Format: format, ContentType: contentType, Width: cfg.Width, Height: cfg.Height}, nil
}

// DecodeImage fully decodes a PNG or JPEG, catching truncated or corrupt
// bodies that a header probe lets through.
func DecodeImage(data []byte) (image.Image, error) {
	info, err := ProbeImage(data)
	if err != nil {
		return nil, err
	}
	var img image.Image
	if info.Format == "png" {
		img, err = png.Decode(bytes.NewReader(data))
	} else {
		img, err = jpeg.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", info.Format, err)
	}
	return img, nil
}
