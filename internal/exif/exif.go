package exif

import (
	"bytes"
	"math"
	"strings"
	"time"

	"photo-ingest/internal/logging"

	goexif "github.com/rwcarlsen/goexif/exif"
)

// Metadata holds the normalized camera and exposure fields of one image.
// Every field is optional; extraction may yield a partial set or nothing.
type Metadata struct {
	ISO             *int       `json:"iso,omitempty"`
	ExposureSeconds *float64   `json:"exposureSeconds,omitempty"`
	FNumber         *float64   `json:"fNumber,omitempty"`
	FocalLengthMm   *float64   `json:"focalLengthMm,omitempty"`
	Make            *string    `json:"make,omitempty"`
	Model           *string    `json:"model,omitempty"`
	LensModel       *string    `json:"lensModel,omitempty"`
	CapturedAt      *time.Time `json:"capturedAt,omitempty"`
	GPSLat          *float64   `json:"gpsLat,omitempty"`
	GPSLon          *float64   `json:"gpsLon,omitempty"`
}

// Empty reports whether no field was extracted.
func (m Metadata) Empty() bool {
	return m == Metadata{}
}

// DeviceLabel synthesizes a human-readable camera label from make and
// model. When the model string already contains the make (many vendors
// embed it), the make is not repeated.
func (m Metadata) DeviceLabel() string {
	switch {
	case m.Make == nil && m.Model == nil:
		return ""
	case m.Make == nil:
		return *m.Model
	case m.Model == nil:
		return *m.Make
	}

	mk := strings.TrimSpace(*m.Make)
	md := strings.TrimSpace(*m.Model)
	if strings.Contains(strings.ToLower(md), strings.ToLower(mk)) {
		return md
	}
	return mk + " " + md
}

// Extract reads the embedded tag block from raw image bytes. It never
// fails: any parse error, missing tag block, or decoder panic results in
// an empty Metadata.
func Extract(data []byte) (m Metadata) {
	defer func() {
		if r := recover(); r != nil {
			logging.Debug("exif: recovered from decoder panic: %v", r)
			m = Metadata{}
		}
	}()

	x, err := goexif.Decode(bytes.NewReader(data))
	if err != nil {
		logging.Debug("exif: no usable tag block: %v", err)
		return Metadata{}
	}

	m.ISO = tagInt(x, goexif.ISOSpeedRatings)
	m.FNumber = tagRat(x, goexif.FNumber)
	m.FocalLengthMm = tagRat(x, goexif.FocalLength)
	m.Make = tagString(x, goexif.Make)
	m.Model = tagString(x, goexif.Model)
	m.LensModel = tagString(x, goexif.LensModel)

	m.ExposureSeconds = tagRat(x, goexif.ExposureTime)
	if m.ExposureSeconds == nil {
		// Some producers only record the APEX shutter speed; exposure
		// time in seconds is 2^(-shutterSpeedValue).
		if ssv := tagRat(x, goexif.ShutterSpeedValue); ssv != nil {
			exposure := math.Exp2(-*ssv)
			m.ExposureSeconds = &exposure
		}
	}

	if t, err := x.DateTime(); err == nil {
		m.CapturedAt = &t
	}

	if lat, lon, err := x.LatLong(); err == nil {
		m.GPSLat = &lat
		m.GPSLon = &lon
	}

	return m
}

func tagInt(x *goexif.Exif, name goexif.FieldName) *int {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	v, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &v
}

func tagRat(x *goexif.Exif, name goexif.FieldName) *float64 {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	v := float64(num) / float64(den)
	return &v
}

func tagString(x *goexif.Exif, name goexif.FieldName) *string {
	tag, err := x.Get(name)
	if err != nil {
		return nil
	}
	s, err := tag.StringVal()
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(strings.Trim(s, "\x00"))
	if s == "" {
		return nil
	}
	return &s
}
