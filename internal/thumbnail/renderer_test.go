package thumbnail

import (
	"image"
	"image/color"
	"testing"
)

func TestComposeWideImage(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 400, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	out := Compose(src, Size)
	bounds := out.Bounds()
	if bounds.Dx() != Size || bounds.Dy() != Size {
		t.Fatalf("canvas must be %dx%d, got %dx%d", Size, Size, bounds.Dx(), bounds.Dy())
	}

	// A wide source is letterboxed: white above, content centered.
	r, g, b, _ := out.At(Size/2, 2).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("top band should be white, got r=%x g=%x b=%x", r, g, b)
	}
	r, g, b, _ = out.At(Size/2, Size/2).RGBA()
	if r == 0xffff && g == 0xffff && b == 0xffff {
		t.Fatal("center should carry scaled content, not background")
	}
}

func TestComposeTallImage(t *testing.T) {
	t.Parallel()
	src := image.NewRGBA(image.Rect(0, 0, 50, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 50; x++ {
			src.Set(x, y, color.RGBA{B: 255, A: 255})
		}
	}

	out := Compose(src, Size)
	if out.Bounds().Dx() != Size || out.Bounds().Dy() != Size {
		t.Fatalf("canvas must be square, got %v", out.Bounds())
	}
	r, g, b, _ := out.At(2, Size/2).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff {
		t.Fatalf("left band should be white, got r=%x g=%x b=%x", r, g, b)
	}
}
