package util

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

var ErrNotDataURL = errors.New("not a base64 data URL")

// SniffMimeHTTP определяет MIME по сигнатуре; для неизвестного содержимого
// отдаёт результат http.DetectContentType.
func SniffMimeHTTP(b []byte) string {
	// JPEG: FF D8
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return "image/jpeg"
	}
	// PNG
	if len(b) >= 8 &&
		b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 &&
		b[4] == 0x0D && b[5] == 0x0A && b[6] == 0x1A && b[7] == 0x0A {
		return "image/png"
	}
	if len(b) == 0 {
		return "application/octet-stream"
	}
	ct := http.DetectContentType(b)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

func IsImageMIME(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

func MakeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// SplitDataURL разбирает data:<mime>;base64,<payload>.
func SplitDataURL(s string) (mime, payload string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", "", ErrNotDataURL
	}
	idx := strings.IndexByte(s, ',')
	if idx < 0 {
		return "", "", ErrNotDataURL
	}
	meta := s[len("data:"):idx] // "<mime>;base64"
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", ErrNotDataURL
	}
	return strings.TrimSuffix(meta, ";base64"), s[idx+1:], nil
}

// DecodeImagePayload принимает data URL или голый base64 и возвращает байты и MIME:
// из префикса, а без него - по сигнатуре.
func DecodeImagePayload(s string) ([]byte, string, error) {
	mime, payload, err := SplitDataURL(s)
	if err != nil {
		mime, payload = "", strings.TrimSpace(s)
		// любой другой префикс до запятой отбрасываем
		if i := strings.IndexByte(payload, ','); i >= 0 {
			payload = payload[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.URLEncoding.DecodeString(payload); err != nil {
			return nil, "", err
		}
	}
	if mime == "" {
		mime = SniffMimeHTTP(data)
	}
	return data, mime, nil
}
