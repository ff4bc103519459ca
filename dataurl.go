package posematch

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeImageBase64 returns the raw bytes of a base64 encoded image, with or
// without a data URL prefix such as data:image/jpeg;base64,
func DecodeImageBase64(s string) ([]byte, error) {

	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ",")

		if idx == -1 {
			return nil, fmt.Errorf("malformed data url")
		}

		s = s[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))

	if err != nil {
		return nil, fmt.Errorf("error decoding base64 image: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	return data, nil
}
