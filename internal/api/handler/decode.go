package handler

import (
	"encoding/base64"
	"strings"

	"github.com/tupi-labs/ponto/internal/domain"
)

const maxImageSize = 10 * 1024 * 1024 // 10MB, after decoding

// decodeImage decodes a base64 image payload. Data URI prefixes
// ("data:image/jpeg;base64,") from browser captures are tolerated.
func decodeImage(s string) ([]byte, error) {
	if idx := strings.IndexByte(s, ','); idx != -1 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	if s == "" {
		return nil, domain.ErrInvalidImage
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidImage.WithError(err)
	}
	if len(data) > maxImageSize {
		return nil, domain.ErrInvalidImage
	}
	return data, nil
}

func decodeImages(frames []string) ([][]byte, error) {
	out := make([][]byte, 0, len(frames))
	for _, f := range frames {
		data, err := decodeImage(f)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
