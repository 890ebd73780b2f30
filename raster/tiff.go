// Copyright 2018, RadiantBlue Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package raster

import (
	"image"
	"image/color"
	"io"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// ReflectanceScale converts Sentinel-2 L1C digital numbers to reflectance
const ReflectanceScale = 10000

// ReadTIFF decodes a single-band 16-bit TIFF into a layer, dividing each
// digital number by scale. DN 0 is nodata and becomes NaN. When width and
// height are positive and differ from the stored grid, the band is first
// resampled bilinearly onto a width x height grid.
func ReadTIFF(r io.Reader, scale float64, width, height int) (*Layer, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to decode TIFF band")
	}
	gray := toGray16(img)
	if width > 0 && height > 0 && (gray.Bounds().Dx() != width || gray.Bounds().Dy() != height) {
		gray = ResampleGray16(gray, width, height)
	}

	bounds := gray.Bounds()
	layer := &Layer{Width: bounds.Dx(), Height: bounds.Dy(), Values: make([]float64, bounds.Dx()*bounds.Dy())}
	for y := 0; y < layer.Height; y++ {
		for x := 0; x < layer.Width; x++ {
			dn := gray.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			if dn == 0 {
				layer.Values[y*layer.Width+x] = nan
			} else {
				layer.Values[y*layer.Width+x] = float64(dn) / scale
			}
		}
	}
	return layer, nil
}

func toGray16(img image.Image) *image.Gray16 {
	if gray, ok := img.(*image.Gray16); ok {
		return gray
	}
	bounds := img.Bounds()
	gray := image.NewGray16(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.SetGray16(x, y, color.Gray16Model.Convert(img.At(x, y)).(color.Gray16))
		}
	}
	return gray
}

// ResampleGray16 scales a 16-bit band onto a new grid with bilinear filtering
func ResampleGray16(src *image.Gray16, width, height int) *image.Gray16 {
	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// WriteTIFF encodes a layer as a deflate-compressed 16-bit TIFF, multiplying
// each value by scale. Masked pixels are written as DN 0, the nodata value.
// Finite values are clamped to [1, 65535], so a reflectance of 0 or below is
// stored as DN 1 and reads back as 1/scale.
func WriteTIFF(w io.Writer, layer *Layer, scale float64) error {
	gray := image.NewGray16(image.Rect(0, 0, layer.Width, layer.Height))
	for y := 0; y < layer.Height; y++ {
		for x := 0; x < layer.Width; x++ {
			v := layer.At(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			dn := math.Round(v * scale)
			dn = math.Max(1, math.Min(math.MaxUint16, dn))
			gray.SetGray16(x, y, color.Gray16{Y: uint16(dn)})
		}
	}
	if err := tiff.Encode(w, gray, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errors.Wrap(err, "Failed to encode TIFF band")
	}
	return nil
}
