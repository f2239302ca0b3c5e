package acquire

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

type openCounter struct {
	BytesFile
	opened int
}

func (o *openCounter) Open(ctx context.Context) (io.ReadCloser, error) {
	o.opened++
	return o.BytesFile.Open(ctx)
}

type failingFile struct{ BytesFile }

func (failingFile) Open(context.Context) (io.ReadCloser, error) {
	return nil, errors.New("download failed")
}

func TestAcquire_Image(t *testing.T) {
	a := New(0)
	img, err := a.Acquire(context.Background(), BytesFile{FileName: "task.png", Type: "image/png", Data: pngHeader})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(img), "data:image/png;base64,"))
	assert.Equal(t, "image/png", img.MediaType())

	b, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, pngHeader, b)
}

func TestAcquire_RejectsNonImageWithoutReading(t *testing.T) {
	f := &openCounter{BytesFile: BytesFile{FileName: "notes.pdf", Type: "application/pdf", Data: []byte("%PDF-1.4")}}
	_, err := New(0).Acquire(context.Background(), f)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.opened)
}

func TestAcquire_Rejects(t *testing.T) {
	tests := []struct {
		name string
		max  int64
		file File
	}{
		{"nil file", 0, nil},
		{"no media type", 0, BytesFile{FileName: "x", Data: pngHeader}},
		{"content is not an image", 0, BytesFile{FileName: "fake.jpg", Type: "image/jpeg", Data: []byte("just some text")}},
		{"empty", 0, BytesFile{FileName: "e.png", Type: "image/png"}},
		{"too large", 8, BytesFile{FileName: "big.png", Type: "image/png", Data: pngHeader}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.max).Acquire(context.Background(), tt.file)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestAcquire_OpenError(t *testing.T) {
	_, err := New(0).Acquire(context.Background(), failingFile{BytesFile{FileName: "a.jpg", Type: "image/jpeg"}})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "download failed")
}
