package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	var objects []string

	n := len(pages)
	fontID := 3 + 2*n
	kids := ""
	for i := 0; i < n; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}

	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i, text := range pages {
		contentID := 4 + 2*i
		objects = append(objects, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			fontID, contentID))
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	return buf.Bytes()
}

type fakeRenderer struct {
	pages    int
	openErr  error
	rendered []int
	dpis     []float64
	closed   bool
}

func (f *fakeRenderer) Open([]byte) (renderedDoc, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f, nil
}

func (f *fakeRenderer) NumPage() int { return f.pages }

func (f *fakeRenderer) Render(n int, dpi float64) (image.Image, error) {
	if n >= f.pages {
		return nil, errors.New("page out of range")
	}
	f.rendered = append(f.rendered, n)
	f.dpis = append(f.dpis, dpi)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: uint8(n * 40), A: 255})
	}
	return img, nil
}

func (f *fakeRenderer) Close() error {
	f.closed = true
	return nil
}

var bg = context.Background()
