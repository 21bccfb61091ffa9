package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/adventure-engine/pkg/adventure"
)

// adventureDir is the subdirectory of the data directory holding documents.
const adventureDir = "adventures"

// catalog loads adventure documents from <dataDir>/adventures. The adventure
// id is the file name without its extension; JSON and YAML are both accepted.
type catalog struct {
	dataDir string
	logger  *slog.Logger
}

func newCatalog(dataDir string, logger *slog.Logger) catalog {
	if dataDir == "" {
		dataDir = "./data"
	}
	return catalog{dataDir: dataDir, logger: logger}
}

func (c catalog) dir() string {
	return filepath.Join(c.dataDir, adventureDir)
}

func (c catalog) ListAdventures(ctx context.Context) (map[string]string, error) {
	adventures := make(map[string]string)

	err := filepath.WalkDir(c.dir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != c.dir() {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := adventure.FormatFromPath(path); !ok {
			return nil
		}

		doc, err := c.decode(path)
		if err != nil {
			c.logger.Warn("Skipping unreadable adventure file", "path", path, "error", err)
			return nil
		}
		adventures[idFromPath(path)] = doc.Title
		return nil
	})
	if err != nil {
		c.logger.Error("Failed to walk adventures directory", "error", err)
		return nil, fmt.Errorf("failed to list adventures: %w", err)
	}

	return adventures, nil
}

func (c catalog) GetAdventure(ctx context.Context, id string) (*adventure.Adventure, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, fmt.Errorf("invalid adventure id %q", id)
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(c.dir(), id+ext)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat adventure file: %w", err)
		}
		doc, err := c.decode(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load adventure %s: %w", id, err)
		}
		return doc, nil
	}
	return nil, nil
}

func (c catalog) decode(path string) (*adventure.Adventure, error) {
	format, _ := adventure.FormatFromPath(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := adventure.Decode(f, format)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = idFromPath(path)
	}
	return doc, nil
}

func idFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
