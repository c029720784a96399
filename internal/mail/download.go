package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vdavid/mailcore/internal/content"
	"github.com/vdavid/mailcore/internal/mailerr"
)

// Download re-fetches the message at displayIndex, finds the first part
// whose filename matches case-insensitively and writes it to the download
// dir, replacing any existing file. It returns the written path.
func (e *Engine) Download(ctx context.Context, folder string, displayIndex int, filename string) (string, error) {
	name, err := safeFilename(filename)
	if err != nil {
		return "", err
	}

	_, root, _, err := e.fetchDecoded(ctx, folder, displayIndex)
	if err != nil {
		return "", err
	}

	file, ok := content.Find(root, filename)
	if !ok {
		return "", &mailerr.AttachmentNotFoundError{Folder: folder, DisplayIndex: displayIndex, Filename: filename}
	}

	if err := os.MkdirAll(e.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}
	path := filepath.Join(e.downloadDir, name)
	if err := os.WriteFile(path, file.Content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}

	e.log.Info().
		Str("folder", folder).
		Int("index", displayIndex).
		Str("path", path).
		Int("bytes", len(file.Content)).
		Msg("Attachment saved")
	return path, nil
}

// safeFilename strips any directory part so the file lands inside the
// download dir.
func safeFilename(filename string) (string, error) {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: %q", mailerr.ErrUnsafeFilename, filename)
	}
	return name, nil
}
