package download

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sqweek/dialog"

	"melody-gate/debug"
)

// ErrCancelled is returned when the user dismisses the save dialog.
var ErrCancelled = errors.New("download cancelled")

// FileSaver writes images into a directory. An existing file is never
// overwritten; "name (1).png", "name (2).png", ... are tried instead.
type FileSaver struct {
	Dir string
}

func (f FileSaver) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(f.Dir, candidate)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("save image: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", fmt.Errorf("save image: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("save image: %w", err)
		}
		debug.Log("download", "saved %d bytes to %s", len(data), path)
		return path, nil
	}
	return "", fmt.Errorf("save image: too many copies of %s in %s", name, f.Dir)
}

// DialogSaver asks where to save with a native file dialog, starting in Dir.
type DialogSaver struct {
	Dir string
}

func (d DialogSaver) Save(name string, data []byte) (string, error) {
	path, err := dialog.File().
		Filter("PNG images", "png").
		SetStartDir(d.Dir).
		SetStartFile(name).
		Title("Save generated image").
		Save()
	if err != nil {
		if errors.Is(err, dialog.ErrCancelled) {
			return "", ErrCancelled
		}
		return "", fmt.Errorf("save dialog: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	debug.Log("download", "saved %d bytes to %s", len(data), path)
	return path, nil
}
