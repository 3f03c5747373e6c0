package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/actor"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("template name already in use")
)

// TemplateStore persists strategy templates. Names are unique ignoring case.
type TemplateStore interface {
	// CreateTemplate validates t, assigns an ID when it has none, and stores it.
	CreateTemplate(ctx context.Context, t *strategy.Template) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*strategy.Template, error)
	GetTemplateByName(ctx context.Context, name string) (*strategy.Template, error)
	UpdateTemplate(ctx context.Context, t *strategy.Template) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error
	ListTemplates(ctx context.Context) ([]*strategy.Template, error)
}

// FighterSource loads fighter specs (filesystem-backed in every backend).
// GetFighterSpec does NOT build the d20.Actor; use actor.NewFighterFromSpec.
type FighterSource interface {
	GetFighterSpec(ctx context.Context, id string) (*actor.FighterSpec, error)
	ListFighters(ctx context.Context) ([]string, error)
}

// Storage defines a unified interface for all storage operations
type Storage interface {
	Ping(ctx context.Context) error
	Close() error

	TemplateStore
	FighterSource
}
