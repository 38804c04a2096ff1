package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/render"
	"golang.org/x/image/draw"

	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

// Thumbnails are square PNGs; the preview page is scaled to fit and centered
// on a white canvas so aspect ratio survives.
const Size = 256

// Renderer turns a preview document into a raster thumbnail. Any error is a
// non-fatal outcome for callers: a pattern without a renderable preview is a
// valid end state.
type Renderer interface {
	Render(ctx context.Context, pdf []byte) ([]byte, error)
}

type pdfRenderer struct {
	log *logger.Logger
}

func NewPDFRenderer(log *logger.Logger) Renderer {
	return &pdfRenderer{log: log.With("service", "ThumbnailRenderer")}
}

// Render rasterizes the first page of the PDF and downscales it into a
// Size×Size PNG.
func (r *pdfRenderer) Render(ctx context.Context, pdf []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := model.NewPdfReader(bytes.NewReader(pdf))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	page, err := reader.GetPage(1)
	if err != nil {
		return nil, fmt.Errorf("get first page: %w", err)
	}

	device := render.NewImageDevice()
	img, err := device.Render(page)
	if err != nil {
		return nil, fmt.Errorf("rasterize page: %w", err)
	}

	thumb := Compose(img, Size)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// Compose scales src to fit within a size×size square, preserving aspect
// ratio, and centers it on a white background.
func Compose(src image.Image, size int) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	dstW, dstH := size, size
	if srcW >= srcH && srcW > 0 {
		dstH = srcH * size / srcW
	} else if srcH > 0 {
		dstW = srcW * size / srcH
	}
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	offset := image.Pt((size-dstW)/2, (size-dstH)/2)
	draw.Draw(canvas, scaled.Bounds().Add(offset), scaled, image.Point{}, draw.Over)

	return canvas
}
