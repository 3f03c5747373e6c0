package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"gopkg.in/yaml.v3"
)

// LoadTemplateFile reads one YAML strategy template. A template without a
// name takes the file's base name.
func LoadTemplateFile(path string) (*strategy.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	var t strategy.Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(t.Name) == "" {
		t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &t, nil
}

// LoadTemplateDir reads every *.yaml and *.yml file under dir. A missing
// directory yields no templates.
func LoadTemplateDir(dir string) ([]*strategy.Template, error) {
	var out []*strategy.Template
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		t, err := LoadTemplateFile(path)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *strategy.Template) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Seed stores templates whose names are not taken yet. It returns how many
// were created.
func Seed(ctx context.Context, store storage.TemplateStore, templates []*strategy.Template, logger *slog.Logger) (int, error) {
	created := 0
	for _, t := range templates {
		if _, err := store.GetTemplateByName(ctx, t.Name); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return created, err
		}
		if err := store.CreateTemplate(ctx, t); err != nil {
			return created, fmt.Errorf("seed template %q: %w", t.Name, err)
		}
		logger.Info("Seeded strategy template", "name", t.Name, "template_id", t.ID)
		created++
	}
	return created, nil
}

// New opens the storage backend named by backend ("redis" or "sqlite").
func New(backend, redisURL, sqlitePath, dataDir string, logger *slog.Logger) (storage.Storage, error) {
	switch backend {
	case "redis":
		return NewRedisStorage(redisURL, dataDir, logger)
	case "sqlite":
		return NewSQLStorage(sqlitePath, dataDir, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
