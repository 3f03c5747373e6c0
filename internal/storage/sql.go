package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/storage"
	"github.com/jwebster45206/combat-engine/pkg/strategy"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// templateRow is the SQL shape of a strategy template.
type templateRow struct {
	ID          string          `gorm:"primaryKey;size:36"`
	Name        string          `gorm:"not null"`
	NameKey     string          `gorm:"uniqueIndex;not null"` // FoldName(Name)
	Description string
	Mode        string          `gorm:"not null"`
	Policy      strategy.Policy `gorm:"type:text;serializer:json"`
	Eligibility string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (templateRow) TableName() string { return "strategy_templates" }

func toRow(t *strategy.Template) templateRow {
	return templateRow{
		ID:          t.ID.String(),
		Name:        t.Name,
		NameKey:     FoldName(t.Name),
		Description: t.Description,
		Mode:        t.Mode.String(),
		Policy:      t.Policy,
		Eligibility: t.Eligibility,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (r templateRow) template() (*strategy.Template, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("template row id: %w", err)
	}
	mode, err := strategy.ParseMode(r.Mode)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", r.Name, err)
	}
	return &strategy.Template{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Mode:        mode,
		Policy:      r.Policy,
		Eligibility: r.Eligibility,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// SQLStorage keeps templates in SQLite through gorm and loads fighters from
// the filesystem.
type SQLStorage struct {
	*FighterDir
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.Storage = (*SQLStorage)(nil)

// NewSQLStorage opens (and migrates) the database at path. An empty path
// uses a private in-memory database.
func NewSQLStorage(path, dataDir string, log *slog.Logger) (*SQLStorage, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if path == "" {
		// each pooled connection to :memory: would be its own database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&templateRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate strategy_templates: %w", err)
	}
	log.Info("Using SQLite template store", "path", dsn)
	return &SQLStorage{FighterDir: NewFighterDir(dataDir), db: db, logger: log}, nil
}

func (s *SQLStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStorage) nameTaken(ctx context.Context, name string, except string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&templateRow{}).
		Where("name_key = ? AND id <> ?", FoldName(name), except).
		Count(&count).Error
	return count > 0, err
}

func (s *SQLStorage) CreateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	taken, err := s.nameTaken(ctx, t.Name, "")
	if err != nil {
		return fmt.Errorf("failed to check template name: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %q", storage.ErrDuplicateName, t.Name)
	}

	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	row := toRow(t)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %q", storage.ErrDuplicateName, t.Name)
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (s *SQLStorage) first(ctx context.Context, query string, arg any) (*strategy.Template, error) {
	var row templateRow
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: template %v", storage.ErrNotFound, arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return row.template()
}

func (s *SQLStorage) GetTemplate(ctx context.Context, id uuid.UUID) (*strategy.Template, error) {
	return s.first(ctx, "id = ?", id.String())
}

func (s *SQLStorage) GetTemplateByName(ctx context.Context, name string) (*strategy.Template, error) {
	return s.first(ctx, "name_key = ?", FoldName(name))
}

func (s *SQLStorage) UpdateTemplate(ctx context.Context, t *strategy.Template) error {
	if t == nil {
		return errors.New("template cannot be nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}
	old, err := s.GetTemplate(ctx, t.ID)
	if err != nil {
		return err
	}
	taken, err := s.nameTaken(ctx, t.Name, t.ID.String())
	if err != nil {
		return fmt.Errorf("failed to check template name: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %q", storage.ErrDuplicateName, t.Name)
	}

	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	row := toRow(t)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

func (s *SQLStorage) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&templateRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: template %s", storage.ErrNotFound, id)
	}
	return nil
}

func (s *SQLStorage) ListTemplates(ctx context.Context) ([]*strategy.Template, error) {
	var rows []templateRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	out := make([]*strategy.Template, 0, len(rows))
	for _, row := range rows {
		t, err := row.template()
		if err != nil {
			s.logger.Warn("Skipping unreadable template row", "id", row.ID, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
