package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"reshalka/api/internal/acquire"
)

// FileLinker отдаёт прямую ссылку на файл Telegram (tgbotapi.BotAPI).
type FileLinker interface {
	GetFileDirectURL(fileID string) (string, error)
}

// tgFile - файл из сообщения. Скачивается только в Open, после проверки MediaType.
type tgFile struct {
	linker FileLinker
	httpc  *http.Client
	id     string
	name   string
	mime   string
}

var _ acquire.File = (*tgFile)(nil)

func (f *tgFile) Name() string      { return f.name }
func (f *tgFile) MediaType() string { return f.mime }

func (f *tgFile) Open(ctx context.Context) (io.ReadCloser, error) {
	url, err := f.linker.GetFileDirectURL(f.id)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download %s: status %d: %s", f.name, resp.StatusCode, string(b))
	}
	return resp.Body, nil
}

// photoFile - самое большое превью фото; Telegram всегда перекодирует фото в JPEG.
func photoFile(l FileLinker, httpc *http.Client, sizes []tgbotapi.PhotoSize) *tgFile {
	ph := sizes[len(sizes)-1]
	return &tgFile{linker: l, httpc: httpc, id: ph.FileID, name: "photo.jpg", mime: "image/jpeg"}
}

func documentFile(l FileLinker, httpc *http.Client, d *tgbotapi.Document) *tgFile {
	name := d.FileName
	if name == "" {
		name = "document"
	}
	return &tgFile{linker: l, httpc: httpc, id: d.FileID, name: name, mime: d.MimeType}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
