// Package decode provides the default ports.Decoder.
//
// It does not interpret any medical-imaging format. It recognizes what an item is (DICOM part 10,
// a JSON state document, a standard raster image or opaque bytes), fills the SliceInfo relayed to
// subscribers and, for raster images, decodes pixels and a preview thumbnail.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"path"
	"strings"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/disintegration/imaging"
)

// Format names reported in SliceInfo.Format for non-raster items.
const (
	FormatDICOM = "dicom"
	FormatJSON  = "json"
	FormatRaw   = "raw"
)

// DefaultPreviewSize is the bounding box of preview thumbnails, in pixels.
const DefaultPreviewSize = 128

const dicomPreamble = 128

// Decoder implements ports.Decoder.
type Decoder struct {
	previewSize int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithPreviewSize sets the preview bounding box. Zero disables previews.
func WithPreviewSize(px int) Option {
	return func(d *Decoder) {
		d.previewSize = px
	}
}

// New creates a Decoder.
func New(opts ...Option) *Decoder {
	d := &Decoder{previewSize: DefaultPreviewSize}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode describes raw and, when it is a raster image, decodes it.
func (d *Decoder) Decode(item domain.Item, raw []byte, charset string) (*domain.Data, error) {
	data := &domain.Data{
		Item: item,
		Raw:  raw,
		Info: domain.SliceInfo{
			Name:         DisplayName(item),
			Source:       item.Name,
			Size:         len(raw),
			ContentType:  http.DetectContentType(raw),
			CharacterSet: charset,
		},
	}

	switch {
	case IsDICOM(raw):
		data.Info.Format = FormatDICOM
		data.Info.ContentType = "application/dicom"
	case isJSONName(item):
		if !json.Valid(raw) {
			return nil, &domain.LoadError{
				Kind:    "SyntaxError",
				Message: "invalid JSON document " + data.Info.Name,
				Err:     errors.New("invalid JSON"),
			}
		}
		data.Info.Format = FormatJSON
		data.Info.ContentType = "application/json"
	default:
		if err := d.decodeRaster(data); err != nil {
			data.Info.Format = FormatRaw
		}
	}
	return data, nil
}

func (d *Decoder) decodeRaster(data *domain.Data) error {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data.Raw))
	if err != nil {
		return err
	}
	img, err := imaging.Decode(bytes.NewReader(data.Raw), imaging.AutoOrientation(true))
	if err != nil {
		return err
	}
	data.Image = img
	data.Info.Format = format
	data.Info.Width = img.Bounds().Dx()
	data.Info.Height = img.Bounds().Dy()
	if data.Info.Width == 0 && data.Info.Height == 0 {
		data.Info.Width, data.Info.Height = cfg.Width, cfg.Height
	}
	if d.previewSize > 0 {
		data.Preview = imaging.Fit(img, d.previewSize, d.previewSize, imaging.Lanczos)
	}
	return nil
}

// IsDICOM reports whether raw carries the DICOM part 10 preamble and magic.
func IsDICOM(raw []byte) bool {
	return len(raw) >= dicomPreamble+4 && string(raw[dicomPreamble:dicomPreamble+4]) == "DICM"
}

// DisplayName returns the short name of an item: the buffer filename, or the last path element.
func DisplayName(item domain.Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	name := item.Name
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return path.Base(strings.ReplaceAll(name, "\\", "/"))
}

func isJSONName(item domain.Item) bool {
	name := item.Name
	if item.Filename != "" {
		name = item.Filename
	}
	return strings.EqualFold(path.Ext(name), ".json")
}
