package audio

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrNoAudio - аудиоданные не переданы или пусты.
var ErrNoAudio = errors.New("audio: no audio data")

// EncodeBase64 кодирует байты так, как их ждет дополнение.
func EncodeBase64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// DecodeBase64 принимает стандартный base64, base64 без дополнения и data: URI.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ";base64,"); i >= 0 {
			s = s[i+len(";base64,"):]
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrNoAudio
	}
	var lastErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, errors.Join(errors.New("audio: invalid base64"), lastErr)
}
