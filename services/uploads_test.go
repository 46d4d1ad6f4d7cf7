package services_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/AlexLuu1/Memento/services"
	"github.com/m-mizutani/gt"
)

func pngBytes(t *testing.T, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			c := color.NRGBA{R: 200, G: 10, B: 10, A: 255}
			if transparent {
				c.A = 0
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	gt.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadsWriteRead(t *testing.T) {
	uploads, err := services.NewUploads(t.TempDir())
	gt.NoError(t, err)

	gt.False(t, uploads.Exists("abc.jpg"))
	gt.NoError(t, uploads.Write("abc.jpg", []byte("data")))
	gt.True(t, uploads.Exists("abc.jpg"))

	data, err := uploads.Read("abc.jpg")
	gt.NoError(t, err)
	gt.Equal(t, string(data), "data")
	gt.Equal(t, uploads.URL("abc.jpg"), "/uploads/abc.jpg")
}

func TestUploadsRejectsTraversal(t *testing.T) {
	uploads, err := services.NewUploads(t.TempDir())
	gt.NoError(t, err)

	for _, name := range []string{"../escape.jpg", "a/b.jpg", "", ".."} {
		gt.Error(t, uploads.Write(name, []byte("x")))
	}
}

func TestNormalizeImagePNG(t *testing.T) {
	out, err := services.NormalizeImage(pngBytes(t, false))
	gt.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	gt.NoError(t, err)
	gt.Equal(t, format, "jpeg")
	gt.Equal(t, img.Bounds().Dx(), 4)
}

func TestNormalizeImageFlattensTransparency(t *testing.T) {
	out, err := services.NormalizeImage(pngBytes(t, true))
	gt.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	gt.NoError(t, err)
	r, g, b, _ := img.At(1, 1).RGBA()
	gt.True(t, r > 0xf000 && g > 0xf000 && b > 0xf000)
}

func TestNormalizeImageRejectsGarbage(t *testing.T) {
	_, err := services.NormalizeImage([]byte("not an image"))
	gt.True(t, errors.Is(err, services.ErrImage))
}

// pngHeader returns the signature and IHDR chunk of an 8-bit grayscale PNG.
// It is enough for image.DecodeConfig and never has to be decoded.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], width)
	binary.BigEndian.PutUint32(data[4:8], height)
	data[8] = 8 // bit depth
	data[9] = 0 // grayscale

	chunk := append([]byte("IHDR"), data...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(data)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestNormalizeImageRejectsHugeDimensions(t *testing.T) {
	_, err := services.NormalizeImage(pngHeader(8000, 8000))
	gt.True(t, errors.Is(err, services.ErrImage))

	_, err = services.NormalizeImage(pngHeader(100000, 500))
	gt.True(t, errors.Is(err, services.ErrImage))
}
