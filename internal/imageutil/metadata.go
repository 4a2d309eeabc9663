package imageutil

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// Metadata is the EXIF subset worth knowing about before an uploaded
// photo is forwarded to the provider.
type Metadata struct {
	HasGPS      bool
	Latitude    float64
	Longitude   float64
	DateTaken   time.Time
	CameraMake  string
	CameraModel string
}

// ReadMetadata extracts EXIF from JPEG, HEIC or TIFF bytes. Formats
// without EXIF return an error.
func ReadMetadata(data []byte) (*Metadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	meta := &Metadata{
		CameraMake:  strings.TrimSpace(exifData.Make),
		CameraModel: strings.TrimSpace(exifData.Model),
	}
	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		meta.HasGPS = true
		meta.Latitude = gps.Latitude()
		meta.Longitude = gps.Longitude()
	}
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		meta.DateTaken = exifData.DateTimeOriginal()
	case !exifData.CreateDate().IsZero():
		meta.DateTaken = exifData.CreateDate()
	}
	return meta, nil
}

// SanitizeInspiration logs what an uploaded inspiration photo carries and
// returns the bytes to forward. EXIF segments are dropped from JPEGs so GPS
// coordinates never leave the machine.
func SanitizeInspiration(data []byte, mimeType string) ([]byte, error) {
	if mimeType != "image/jpeg" {
		log.Debug().Str("mime_type", mimeType).Int("bytes", len(data)).Msg("Inspiration image attached")
		return data, nil
	}
	if meta, err := ReadMetadata(data); err != nil {
		log.Debug().Err(err).Msg("Inspiration image has no readable EXIF")
	} else {
		evt := log.Info()
		if meta.HasGPS {
			evt = log.Warn()
		}
		evt.Bool("has_gps", meta.HasGPS).
			Str("camera", strings.TrimSpace(meta.CameraMake+" "+meta.CameraModel)).
			Time("date_taken", meta.DateTaken).
			Int("bytes", len(data)).
			Msg("Inspiration image attached")
	}

	stripped, err := StripEXIF(data)
	if err != nil {
		return nil, err
	}
	if len(stripped) != len(data) {
		log.Debug().Int("removed_bytes", len(data)-len(stripped)).Msg("Stripped EXIF from inspiration image")
	}
	return stripped, nil
}

// StripEXIF removes APP1 segments (EXIF and XMP) from a JPEG. Everything
// from the start of scan onwards is copied unchanged.
func StripEXIF(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a JPEG stream")
	}
	out := make([]byte, 0, len(data))
	out = append(out, 0xFF, 0xD8)
	i := 2
	for {
		if i+1 >= len(data) {
			return nil, errors.New("truncated JPEG stream")
		}
		if data[i] != 0xFF {
			return nil, fmt.Errorf("malformed JPEG marker at offset %d", i)
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF:
			// fill byte
			i++
			continue
		case marker == 0xD9:
			return append(out, 0xFF, 0xD9), nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			out = append(out, data[i:i+2]...)
			i += 2
			continue
		}
		if i+4 > len(data) {
			return nil, errors.New("truncated JPEG segment")
		}
		n := int(data[i+2])<<8 | int(data[i+3])
		end := i + 2 + n
		if n < 2 || end > len(data) {
			return nil, fmt.Errorf("invalid JPEG segment length at offset %d", i)
		}
		if marker == 0xDA {
			return append(out, data[i:]...), nil
		}
		if marker != 0xE1 {
			out = append(out, data[i:end]...)
		}
		i = end
	}
}
