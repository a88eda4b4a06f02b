package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/naming/registry-service/domain/entities"
	domainerrors "tessera/contexts/naming/registry-service/domain/errors"
	"tessera/contexts/naming/registry-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) CreateBinding(ctx context.Context, binding entities.Binding) error {
	row := bindingModelFromEntity(binding)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrLabelTaken
		}
		return err
	}
	return nil
}

func (r *Repository) GetBinding(ctx context.Context, node string) (entities.Binding, error) {
	var row bindingModel
	err := r.db.WithContext(ctx).
		Where("node = ?", strings.TrimSpace(node)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Binding{}, domainerrors.ErrBindingNotFound
		}
		return entities.Binding{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) GetBindingByOwner(ctx context.Context, parentNode string, owner string) (entities.Binding, error) {
	var row bindingModel
	err := r.db.WithContext(ctx).
		Where("parent_node = ? AND owner = ?", strings.TrimSpace(parentNode), strings.TrimSpace(owner)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Binding{}, domainerrors.ErrBindingNotFound
		}
		return entities.Binding{}, err
	}
	return row.toEntity(), nil
}

// ReplaceBinding releases the old node and claims the new one in a single
// transaction, so a taken label fails the whole swap.
func (r *Repository) ReplaceBinding(ctx context.Context, oldNode string, binding entities.Binding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("node = ?", strings.TrimSpace(oldNode)).Delete(&bindingModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrBindingNotFound
		}

		row := bindingModelFromEntity(binding)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrLabelTaken
			}
			return err
		}
		return nil
	})
}

func (r *Repository) DeleteBinding(ctx context.Context, node string) error {
	result := r.db.WithContext(ctx).
		Where("node = ?", strings.TrimSpace(node)).
		Delete(&bindingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrBindingNotFound
	}
	return nil
}

func (r *Repository) ListChildren(ctx context.Context, parentNode string) ([]entities.Binding, error) {
	var rows []bindingModel
	if err := r.db.WithContext(ctx).
		Where("parent_node = ?", strings.TrimSpace(parentNode)).
		Order("created_at ASC, label ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Binding, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AddRegistrar(ctx context.Context, registrar string) error {
	row := registrarModel{Registrar: strings.TrimSpace(registrar)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "registrar"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) RemoveRegistrar(ctx context.Context, registrar string) error {
	return r.db.WithContext(ctx).
		Where("registrar = ?", strings.TrimSpace(registrar)).
		Delete(&registrarModel{}).
		Error
}

func (r *Repository) IsRegistrar(ctx context.Context, registrar string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&registrarModel{}).
		Where("registrar = ?", strings.TrimSpace(registrar)).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListRegistrars(ctx context.Context) ([]string, error) {
	var rows []registrarModel
	if err := r.db.WithContext(ctx).
		Order("registrar ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]string, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Registrar)
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).
		Create(&row).
		Error
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidInput
	}
	return nil
}

type bindingModel struct {
	Node       string    `gorm:"column:node;primaryKey"`
	ParentNode string    `gorm:"column:parent_node"`
	Label      string    `gorm:"column:label"`
	Owner      string    `gorm:"column:owner"`
	Target     string    `gorm:"column:target"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (bindingModel) TableName() string {
	return "registry_bindings"
}

func bindingModelFromEntity(item entities.Binding) bindingModel {
	return bindingModel{
		Node:       strings.TrimSpace(item.Node),
		ParentNode: strings.TrimSpace(item.ParentNode),
		Label:      strings.TrimSpace(item.Label),
		Owner:      strings.TrimSpace(item.Owner),
		Target:     strings.TrimSpace(item.Target),
		CreatedAt:  item.CreatedAt.UTC(),
		UpdatedAt:  item.UpdatedAt.UTC(),
	}
}

func (m bindingModel) toEntity() entities.Binding {
	return entities.Binding{
		Node:       m.Node,
		ParentNode: m.ParentNode,
		Label:      m.Label,
		Owner:      m.Owner,
		Target:     m.Target,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

type registrarModel struct {
	Registrar string `gorm:"column:registrar;primaryKey"`
}

func (registrarModel) TableName() string {
	return "registry_registrars"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "registry_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
