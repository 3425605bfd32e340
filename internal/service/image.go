package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"

	"snapgram/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"

	_ "image/gif"  // register GIF decoder
	_ "image/png"  // register PNG decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// Stories render portrait full-screen; 1080x1920 is the largest variant
	// any client asks for.
	maxImageWidth  = 1080
	maxImageHeight = 1920

	jpegQuality = 82
	webpQuality = 70
)

// processStoryImage validates and normalizes an uploaded story image. The
// bytes are sniffed and fully decoded (never trusted from the client-supplied
// content type), downscaled to the story viewport if larger, and re-encoded.
// WebP input stays WebP; everything else is normalized to JPEG.
func processStoryImage(content []byte, maxBytes int64) ([]byte, string, error) {
	if len(content) == 0 {
		return nil, "", models.NewValidationError("No file uploaded")
	}
	if int64(len(content)) > maxBytes {
		return nil, "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(content)
	if !isAllowedImageMIME(detectedType) {
		return nil, "", models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", models.NewValidationError("Invalid image file")
	}

	resized := resizeToFit(decoded, maxImageWidth, maxImageHeight)

	var buf bytes.Buffer
	if format == "webp" {
		if err := webp.Encode(&buf, resized, &webp.Options{Quality: webpQuality}); err != nil {
			return nil, "", models.NewInternalError(err)
		}
		return buf.Bytes(), "image/webp", nil
	}

	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func isAllowedImageMIME(mime string) bool {
	switch mime {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	}
	return false
}

// resizeToFit scales img down to fit within maxW x maxH, preserving aspect
// ratio. Images already within bounds are returned unchanged.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scaleW := float64(maxW) / float64(w)
	scaleH := float64(maxH) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}

	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
