package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestFighterDir(t *testing.T) {
	dataDir := t.TempDir()
	writeFile(t, filepath.Join(dataDir, "fighters", "bandit.json"), `{
		"name": "Bandit", "side": "outlaws", "max_hp": 11, "ac": 12,
		"attributes": {"strength": 12}, "inventory": ["scimitar"]
	}`)
	writeFile(t, filepath.Join(dataDir, "fighters", "bandit_captain.json"), `{
		"template_id": "bandit", "name": "Bandit Captain", "max_hp": 30,
		"attributes": {"dexterity": 15}
	}`)
	writeFile(t, filepath.Join(dataDir, "fighters", "orphan.json"), `{"template_id": "nobody", "max_hp": 5}`)
	writeFile(t, filepath.Join(dataDir, "fighters", "notes.txt"), "ignore me")

	d := NewFighterDir(dataDir)
	ctx := context.Background()

	ids, err := d.ListFighters(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bandit", "bandit_captain", "orphan"}, ids)

	base, err := d.GetFighterSpec(ctx, "bandit")
	require.NoError(t, err)
	assert.Equal(t, "bandit", base.ID)
	assert.Equal(t, "outlaws", base.Side)

	captain, err := d.GetFighterSpec(ctx, "bandit_captain")
	require.NoError(t, err)
	assert.Equal(t, "bandit_captain", captain.ID)
	assert.Equal(t, "Bandit Captain", captain.Name)
	assert.Equal(t, "outlaws", captain.Side, "inherited from the template")
	assert.Equal(t, 30, captain.MaxHP)
	assert.Equal(t, map[string]int{"strength": 12, "dexterity": 15}, captain.Attributes)
	assert.Equal(t, []string{"scimitar"}, captain.Inventory)

	_, err = d.GetFighterSpec(ctx, "orphan")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = d.GetFighterSpec(ctx, "../secrets")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = d.GetFighterSpec(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFighterDir_MissingDirectory(t *testing.T) {
	ids, err := NewFighterDir(filepath.Join(t.TempDir(), "nope")).ListFighters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadTemplateDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wrestler.yaml"), `
name: Wrestler
mode: grapple_control
policy:
  preferred: [grapple, limb_lock]
  forbidden: [lethal]
  movement: full
  mix:
    natural: 1
eligibility: return combatant.stamina > 3
`)
	writeFile(t, filepath.Join(dir, "nested", "archer.yml"), `
mode: standard_ranged
policy:
  minimum_aim: 0.6
  auto_fire: true
`)
	writeFile(t, filepath.Join(dir, "README.md"), "# not a template")

	templates, err := LoadTemplateDir(dir)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	archer, wrestler := templates[0], templates[1]
	assert.Equal(t, "archer", archer.Name, "name falls back to the file name")
	assert.Equal(t, strategy.ModeStandardRanged, archer.Mode)
	assert.InDelta(t, 0.6, archer.Policy.MinimumAim, 1e-9)

	assert.Equal(t, "Wrestler", wrestler.Name)
	assert.Equal(t, strategy.ModeGrappleControl, wrestler.Mode)
	assert.True(t, wrestler.Policy.Preferred.Has(move.TagLimbLock))
	assert.True(t, wrestler.Policy.Forbidden.Has(move.TagLethal))
	assert.Equal(t, strategy.AutomationFull, wrestler.Policy.Movement)
	assert.InDelta(t, 1.0, wrestler.Policy.Mix.Share(move.CategoryNatural), 1e-9)
	require.NoError(t, wrestler.Validate())
}

func TestLoadTemplateDir_Errors(t *testing.T) {
	templates, err := LoadTemplateDir(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, templates)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "typo.yaml"), "name: Typo\nmoed: clinch\n")
	_, err = LoadTemplateDir(dir)
	assert.Error(t, err, "unknown fields are rejected")
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	require.NoError(t, store.CreateTemplate(ctx, sampleTemplate("Existing")))

	created, err := Seed(ctx, store, []*strategy.Template{
		sampleTemplate("existing"),
		sampleTemplate("Fresh"),
	}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	list, err := store.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
