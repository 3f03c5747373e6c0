package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/internal/logger"
	"github.com/jwebster45206/combat-engine/pkg/move"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return logger.Discard()
}

func newRedisStore(t *testing.T) *RedisStorage {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStorageWithClient(client, t.TempDir(), quietLogger())
}

func newSQLStore(t *testing.T) *SQLStorage {
	t.Helper()
	s, err := NewSQLStorage("", t.TempDir(), quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleTemplate(name string) *strategy.Template {
	p := strategy.DefaultPolicy()
	p.Prefer(move.TagTrip)
	return &strategy.Template{
		Name:        name,
		Description: "keeps them on the ground",
		Mode:        strategy.ModeClinch,
		Policy:      p,
		Eligibility: "return true",
	}
}

func TestTemplateStores(t *testing.T) {
	backends := map[string]func(t *testing.T) storage.Storage{
		"redis":  func(t *testing.T) storage.Storage { return newRedisStore(t) },
		"sqlite": func(t *testing.T) storage.Storage { return newSQLStore(t) },
		"mock":   func(t *testing.T) storage.Storage { return storage.NewMockStorage() },
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("create and read back", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.Ping(ctx))
				tmpl := sampleTemplate("Ground Game")
				require.NoError(t, s.CreateTemplate(ctx, tmpl))
				require.NotEqual(t, uuid.Nil, tmpl.ID)

				got, err := s.GetTemplate(ctx, tmpl.ID)
				require.NoError(t, err)
				assert.Equal(t, "Ground Game", got.Name)
				assert.Equal(t, strategy.ModeClinch, got.Mode)
				assert.True(t, got.Policy.Preferred.Has(move.TagTrip))
				assert.Equal(t, strategy.AutomationPartial, got.Policy.Movement)
				assert.Equal(t, "return true", got.Eligibility)
				assert.False(t, got.CreatedAt.IsZero())
			})

			t.Run("names are case-insensitive and unique", func(t *testing.T) {
				s := open(t)
				require.NoError(t, s.CreateTemplate(ctx, sampleTemplate("Ground Game")))

				got, err := s.GetTemplateByName(ctx, "  ground GAME ")
				require.NoError(t, err)
				assert.Equal(t, "Ground Game", got.Name)

				err = s.CreateTemplate(ctx, sampleTemplate("GROUND GAME"))
				assert.ErrorIs(t, err, storage.ErrDuplicateName)
			})

			t.Run("invalid policy is rejected", func(t *testing.T) {
				s := open(t)
				tmpl := sampleTemplate("Contradiction")
				tmpl.Policy.Required = move.NewTagSet(move.TagLethal)
				tmpl.Policy.Forbidden = move.NewTagSet(move.TagLethal)
				assert.Error(t, s.CreateTemplate(ctx, tmpl))
			})

			t.Run("update renames", func(t *testing.T) {
				s := open(t)
				a := sampleTemplate("Alpha")
				b := sampleTemplate("Bravo")
				require.NoError(t, s.CreateTemplate(ctx, a))
				require.NoError(t, s.CreateTemplate(ctx, b))

				a.Name = "Charlie"
				a.Mode = strategy.ModeFullDefense
				require.NoError(t, s.UpdateTemplate(ctx, a))
				got, err := s.GetTemplateByName(ctx, "charlie")
				require.NoError(t, err)
				assert.Equal(t, a.ID, got.ID)
				assert.Equal(t, strategy.ModeFullDefense, got.Mode)
				_, err = s.GetTemplateByName(ctx, "alpha")
				assert.ErrorIs(t, err, storage.ErrNotFound)

				a.Name = "bravo"
				assert.ErrorIs(t, s.UpdateTemplate(ctx, a), storage.ErrDuplicateName)

				ghost := sampleTemplate("Ghost")
				ghost.ID = uuid.New()
				assert.ErrorIs(t, s.UpdateTemplate(ctx, ghost), storage.ErrNotFound)
			})

			t.Run("list and delete", func(t *testing.T) {
				s := open(t)
				for _, n := range []string{"Zulu", "Alpha", "Mike"} {
					require.NoError(t, s.CreateTemplate(ctx, sampleTemplate(n)))
				}
				list, err := s.ListTemplates(ctx)
				require.NoError(t, err)
				require.Len(t, list, 3)
				assert.Equal(t, "Alpha", list[0].Name)
				assert.Equal(t, "Zulu", list[2].Name)

				require.NoError(t, s.DeleteTemplate(ctx, list[0].ID))
				_, err = s.GetTemplate(ctx, list[0].ID)
				assert.ErrorIs(t, err, storage.ErrNotFound)
				assert.ErrorIs(t, s.DeleteTemplate(ctx, list[0].ID), storage.ErrNotFound)

				// the freed name can be reused
				require.NoError(t, s.CreateTemplate(ctx, sampleTemplate("alpha")))
			})
		})
	}
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, FoldName("Straße"), FoldName("STRASSE"))
	assert.Equal(t, FoldName(" Ground Game "), FoldName("ground game"))
}
