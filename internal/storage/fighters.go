package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"golang.org/x/text/cases"
)

// FighterDir loads fighter specs from <dataDir>/fighters/*.json. A spec with a
// template_id is merged over the named base spec from the same directory.
type FighterDir struct {
	dir string
}

var _ storage.FighterSource = (*FighterDir)(nil)

func NewFighterDir(dataDir string) *FighterDir {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &FighterDir{dir: filepath.Join(dataDir, "fighters")}
}

func (d *FighterDir) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: fighter %q", storage.ErrNotFound, id)
	}
	return filepath.Join(d.dir, id+".json"), nil
}

func (d *FighterDir) load(id string) (*actor.FighterSpec, error) {
	path, err := d.path(id)
	if err != nil {
		return nil, err
	}
	spec, err := actor.LoadFighterSpec(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: fighter %q", storage.ErrNotFound, id)
	}
	return spec, err
}

func (d *FighterDir) GetFighterSpec(ctx context.Context, id string) (*actor.FighterSpec, error) {
	spec, err := d.load(id)
	if err != nil {
		return nil, err
	}
	if spec.TemplateID == "" || spec.TemplateID == id {
		return spec, nil
	}
	base, err := d.load(spec.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("fighter %q template: %w", id, err)
	}
	return actor.NewFromTemplate(base, spec), nil
}

func (d *FighterDir) ListFighters(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read fighters directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}
	return ids, nil
}

// FoldName is the lookup key for a template name: trimmed and case-folded.
// A Caser is stateful, so each call builds its own.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
