// Package acquire turns a user-supplied file into an EncodedImage.
//
// Only images are accepted: the media type reported by the file and the
// sniffed content must both be image/*. Anything else is ErrInvalidInput.
package acquire

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"reshalka/api/internal/solve"
	"reshalka/api/internal/util"
)

// DefaultMaxBytes - «JPG, PNG - до 10 МБ».
const DefaultMaxBytes = 10 << 20

var ErrInvalidInput = errors.New("invalid input")

// File - файл из выбора или drag-drop. Open может быть дорогим (скачивание),
// поэтому вызывается только после проверки MediaType.
type File interface {
	Name() string
	MediaType() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

type Acquirer struct {
	MaxBytes int64
}

func New(maxBytes int64) *Acquirer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Acquirer{MaxBytes: maxBytes}
}

// Acquire читает файл и кодирует его в data URL.
func (a *Acquirer) Acquire(ctx context.Context, f File) (solve.EncodedImage, error) {
	if f == nil {
		return "", fmt.Errorf("%w: no file", ErrInvalidInput)
	}
	if !util.IsImageMIME(f.MediaType()) {
		return "", fmt.Errorf("%w: %s is %q, not an image", ErrInvalidInput, f.Name(), f.MediaType())
	}

	rc, err := f.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name(), err)
	}
	defer rc.Close()

	limit := a.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Name(), err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidInput, f.Name(), limit)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrInvalidInput, f.Name())
	}

	// заявленный тип мог соврать
	mime := util.SniffMimeHTTP(data)
	if !util.IsImageMIME(mime) {
		return "", fmt.Errorf("%w: %s content is %q", ErrInvalidInput, f.Name(), mime)
	}
	return solve.EncodedImage(util.MakeDataURL(mime, data)), nil
}

// BytesFile - File поверх уже загруженных байтов.
type BytesFile struct {
	FileName string
	Type     string
	Data     []byte
}

func (b BytesFile) Name() string      { return b.FileName }
func (b BytesFile) MediaType() string { return b.Type }
func (b BytesFile) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}
