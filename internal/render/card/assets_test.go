package card

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func encodeGray(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	Convey("Given an image within bounds", t, func() {
		img, err := decode(encodeGray(32, 16))
		So(err, ShouldBeNil)
		So(img.Bounds().Dx(), ShouldEqual, 32)
	})

	Convey("Given an image whose header declares a huge width", t, func() {
		_, err := decode(encodeGray(maxImageSide+1, 1))
		So(errors.Is(err, errImageTooLarge), ShouldBeTrue)
	})

	Convey("Given an image whose header declares a huge height", t, func() {
		_, err := decode(encodeGray(1, maxImageSide+1))
		So(errors.Is(err, errImageTooLarge), ShouldBeTrue)
	})

	Convey("Given bytes that are not an image", t, func() {
		_, err := decode([]byte("nope"))
		So(err, ShouldNotBeNil)
	})
}
