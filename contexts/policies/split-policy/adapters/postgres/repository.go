package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"tessera/contexts/policies/split-policy/domain/entities"
	domainerrors "tessera/contexts/policies/split-policy/domain/errors"
	"tessera/contexts/policies/split-policy/ports"

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

func (r *Repository) CreateInstance(ctx context.Context, instance entities.Instance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := instanceModelFromEntity(instance)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidInput
			}
			return err
		}
		return writeRulesAndTiers(tx, instance)
	})
}

func (r *Repository) GetInstance(ctx context.Context, instanceID string) (entities.Instance, error) {
	var row instanceModel
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", strings.TrimSpace(instanceID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Instance{}, domainerrors.ErrInstanceNotFound
		}
		return entities.Instance{}, err
	}

	instance := row.toEntity()

	var ruleRows []ruleModel
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", instance.ID).
		Order("position ASC").
		Find(&ruleRows).
		Error; err != nil {
		return entities.Instance{}, err
	}
	for _, rule := range ruleRows {
		instance.Rules = append(instance.Rules, rule.toEntity())
	}

	var tierRows []tierModel
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", instance.ID).
		Order("position ASC").
		Find(&tierRows).
		Error; err != nil {
		return entities.Instance{}, err
	}
	for _, tier := range tierRows {
		instance.Tiers = append(instance.Tiers, tier.toEntity())
	}
	return instance, nil
}

// UpdateInstance rewrites the instance row together with its rule and tier
// sets. Rules and tiers keep their storage positions, which the split
// calculator's ordering semantics depend on.
func (r *Repository) UpdateInstance(ctx context.Context, instance entities.Instance) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := instanceModelFromEntity(instance)
		result := tx.Model(&instanceModel{}).
			Where("instance_id = ?", row.InstanceID).
			Updates(map[string]any{
				"node":                    row.Node,
				"owner":                   row.Owner,
				"managers":                row.Managers,
				"funding_account":         row.FundingAccount,
				"fallback_recipient":      row.FallbackRecipient,
				"accepted_assets":         row.AcceptedAssets,
				"auto_distribute":         row.AutoDistribute,
				"require_full_allocation": row.RequireFullAllocation,
				"updated_at":              row.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrInstanceNotFound
		}

		if err := tx.Where("instance_id = ?", row.InstanceID).Delete(&ruleModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("instance_id = ?", row.InstanceID).Delete(&tierModel{}).Error; err != nil {
			return err
		}
		return writeRulesAndTiers(tx, instance)
	})
}

func (r *Repository) AppendPayment(ctx context.Context, payment entities.Payment) (int, error) {
	index := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&paymentModel{}).
			Where("instance_id = ?", strings.TrimSpace(payment.InstanceID)).
			Count(&count).
			Error; err != nil {
			return err
		}
		index = int(count)

		row := paymentModelFromEntity(payment)
		row.PaymentIndex = index
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrInvalidInput
			}
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return index, nil
}

func (r *Repository) GetPayment(ctx context.Context, instanceID string, index int) (entities.Payment, error) {
	var row paymentModel
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND payment_index = ?", strings.TrimSpace(instanceID), index).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Payment{}, domainerrors.ErrPaymentNotFound
		}
		return entities.Payment{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListPayments(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []paymentModel
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", strings.TrimSpace(instanceID)).
		Order("payment_index ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Payment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SetPaymentSplitCount(ctx context.Context, instanceID string, index int, splitCount int) error {
	result := r.db.WithContext(ctx).
		Model(&paymentModel{}).
		Where("instance_id = ? AND payment_index = ?", strings.TrimSpace(instanceID), index).
		Update("split_count", splitCount)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPaymentNotFound
	}
	return nil
}

func (r *Repository) AppendDistributions(ctx context.Context, legs []entities.Distribution) error {
	if len(legs) == 0 {
		return nil
	}
	rows := make([]distributionModel, 0, len(legs))
	for _, leg := range legs {
		rows = append(rows, distributionModel{
			DistributionID: uuid.NewString(),
			InstanceID:     strings.TrimSpace(leg.InstanceID),
			PaymentIndex:   leg.PaymentIndex,
			Recipient:      strings.TrimSpace(leg.Recipient),
			Asset:          strings.TrimSpace(leg.Asset),
			Amount:         leg.Amount,
			DistributedAt:  leg.DistributedAt.UTC(),
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *Repository) ListDistributions(ctx context.Context, instanceID string, limit int, offset int) ([]entities.Distribution, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var rows []distributionModel
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", strings.TrimSpace(instanceID)).
		Order("distributed_at ASC, distribution_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.Distribution, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.Distribution{
			InstanceID:    row.InstanceID,
			PaymentIndex:  row.PaymentIndex,
			Recipient:     row.Recipient,
			Asset:         row.Asset,
			Amount:        row.Amount,
			DistributedAt: row.DistributedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) AddToRecipientBalance(ctx context.Context, instanceID string, recipient string, asset string, amount int64) error {
	row := balanceModel{
		InstanceID: strings.TrimSpace(instanceID),
		Recipient:  strings.TrimSpace(recipient),
		Asset:      strings.TrimSpace(asset),
		Total:      amount,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "instance_id"},
				{Name: "recipient"},
				{Name: "asset"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"total": gorm.Expr("split_recipient_balances.total + ?", amount),
			}),
		}).
		Create(&row).
		Error
}

func (r *Repository) GetRecipientBalance(ctx context.Context, instanceID string, recipient string, asset string) (entities.RecipientBalance, error) {
	var row balanceModel
	err := r.db.WithContext(ctx).
		Where("instance_id = ? AND recipient = ? AND asset = ?",
			strings.TrimSpace(instanceID), strings.TrimSpace(recipient), strings.TrimSpace(asset)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RecipientBalance{
				InstanceID: strings.TrimSpace(instanceID),
				Recipient:  strings.TrimSpace(recipient),
				Asset:      strings.TrimSpace(asset),
			}, nil
		}
		return entities.RecipientBalance{}, err
	}
	return row.toEntity(), nil
}

func (r *Repository) ListRecipientBalances(ctx context.Context, instanceID string) ([]entities.RecipientBalance, error) {
	var rows []balanceModel
	if err := r.db.WithContext(ctx).
		Where("instance_id = ?", strings.TrimSpace(instanceID)).
		Order("recipient ASC, asset ASC").
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]entities.RecipientBalance, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
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

func writeRulesAndTiers(tx *gorm.DB, instance entities.Instance) error {
	for position, rule := range instance.Rules {
		row := ruleModel{
			InstanceID:    strings.TrimSpace(instance.ID),
			Position:      position,
			Recipient:     strings.TrimSpace(rule.Recipient),
			PercentageBps: rule.PercentageBps,
			FixedAmount:   rule.FixedAmount,
			MinAmount:     rule.MinAmount,
			MaxAmount:     rule.MaxAmount,
			Active:        rule.Active,
			Label:         strings.TrimSpace(rule.Label),
			AddedAt:       rule.AddedAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	for position, tier := range instance.Tiers {
		row := tierModel{
			InstanceID:    strings.TrimSpace(instance.ID),
			Position:      position,
			Threshold:     tier.Threshold,
			PercentageBps: tier.PercentageBps,
			Active:        tier.Active,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

type instanceModel struct {
	InstanceID            string    `gorm:"column:instance_id;primaryKey"`
	Node                  string    `gorm:"column:node"`
	Owner                 string    `gorm:"column:owner"`
	Managers              []string  `gorm:"column:managers;type:text[]"`
	FundingAccount        string    `gorm:"column:funding_account"`
	FallbackRecipient     string    `gorm:"column:fallback_recipient"`
	AcceptedAssets        []string  `gorm:"column:accepted_assets;type:text[]"`
	AutoDistribute        bool      `gorm:"column:auto_distribute"`
	RequireFullAllocation bool      `gorm:"column:require_full_allocation"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (instanceModel) TableName() string {
	return "split_instances"
}

func instanceModelFromEntity(item entities.Instance) instanceModel {
	return instanceModel{
		InstanceID:            strings.TrimSpace(item.ID),
		Node:                  strings.TrimSpace(item.Node),
		Owner:                 strings.TrimSpace(item.Owner),
		Managers:              copyOrEmpty(item.Managers),
		FundingAccount:        strings.TrimSpace(item.FundingAccount),
		FallbackRecipient:     strings.TrimSpace(item.FallbackRecipient),
		AcceptedAssets:        copyOrEmpty(item.AcceptedAssets),
		AutoDistribute:        item.AutoDistribute,
		RequireFullAllocation: item.RequireFullAllocation,
		CreatedAt:             item.CreatedAt.UTC(),
		UpdatedAt:             item.UpdatedAt.UTC(),
	}
}

func (m instanceModel) toEntity() entities.Instance {
	return entities.Instance{
		ID:                    m.InstanceID,
		Node:                  m.Node,
		Owner:                 m.Owner,
		Managers:              copyOrEmpty(m.Managers),
		FundingAccount:        m.FundingAccount,
		FallbackRecipient:     m.FallbackRecipient,
		AcceptedAssets:        copyOrEmpty(m.AcceptedAssets),
		AutoDistribute:        m.AutoDistribute,
		RequireFullAllocation: m.RequireFullAllocation,
		CreatedAt:             m.CreatedAt.UTC(),
		UpdatedAt:             m.UpdatedAt.UTC(),
	}
}

type ruleModel struct {
	InstanceID    string    `gorm:"column:instance_id;primaryKey"`
	Position      int       `gorm:"column:position;primaryKey"`
	Recipient     string    `gorm:"column:recipient"`
	PercentageBps int64     `gorm:"column:percentage_bps"`
	FixedAmount   int64     `gorm:"column:fixed_amount"`
	MinAmount     int64     `gorm:"column:min_amount"`
	MaxAmount     int64     `gorm:"column:max_amount"`
	Active        bool      `gorm:"column:active"`
	Label         string    `gorm:"column:label"`
	AddedAt       time.Time `gorm:"column:added_at"`
}

func (ruleModel) TableName() string {
	return "split_rules"
}

func (m ruleModel) toEntity() entities.SplitRule {
	return entities.SplitRule{
		Recipient:     m.Recipient,
		PercentageBps: m.PercentageBps,
		FixedAmount:   m.FixedAmount,
		MinAmount:     m.MinAmount,
		MaxAmount:     m.MaxAmount,
		Active:        m.Active,
		Label:         m.Label,
		AddedAt:       m.AddedAt.UTC(),
	}
}

type tierModel struct {
	InstanceID    string `gorm:"column:instance_id;primaryKey"`
	Position      int    `gorm:"column:position;primaryKey"`
	Threshold     int64  `gorm:"column:threshold"`
	PercentageBps int64  `gorm:"column:percentage_bps"`
	Active        bool   `gorm:"column:active"`
}

func (tierModel) TableName() string {
	return "split_tiers"
}

func (m tierModel) toEntity() entities.Tier {
	return entities.Tier{
		Threshold:     m.Threshold,
		PercentageBps: m.PercentageBps,
		Active:        m.Active,
	}
}

type paymentModel struct {
	InstanceID   string    `gorm:"column:instance_id;primaryKey"`
	PaymentIndex int       `gorm:"column:payment_index;primaryKey"`
	Payer        string    `gorm:"column:payer"`
	Asset        string    `gorm:"column:asset"`
	Amount       int64     `gorm:"column:amount"`
	SplitType    string    `gorm:"column:split_type"`
	Memo         string    `gorm:"column:memo"`
	SplitCount   int       `gorm:"column:split_count"`
	ReceivedAt   time.Time `gorm:"column:received_at"`
}

func (paymentModel) TableName() string {
	return "split_payments"
}

func paymentModelFromEntity(item entities.Payment) paymentModel {
	return paymentModel{
		InstanceID:   strings.TrimSpace(item.InstanceID),
		PaymentIndex: item.Index,
		Payer:        strings.TrimSpace(item.Payer),
		Asset:        strings.TrimSpace(item.Asset),
		Amount:       item.Amount,
		SplitType:    string(item.SplitType),
		Memo:         strings.TrimSpace(item.Memo),
		SplitCount:   item.SplitCount,
		ReceivedAt:   item.ReceivedAt.UTC(),
	}
}

func (m paymentModel) toEntity() entities.Payment {
	return entities.Payment{
		Index:      m.PaymentIndex,
		InstanceID: m.InstanceID,
		Payer:      m.Payer,
		Asset:      m.Asset,
		Amount:     m.Amount,
		SplitType:  entities.SplitType(m.SplitType),
		Memo:       m.Memo,
		SplitCount: m.SplitCount,
		ReceivedAt: m.ReceivedAt.UTC(),
	}
}

type distributionModel struct {
	DistributionID string    `gorm:"column:distribution_id;primaryKey"`
	InstanceID     string    `gorm:"column:instance_id"`
	PaymentIndex   int       `gorm:"column:payment_index"`
	Recipient      string    `gorm:"column:recipient"`
	Asset          string    `gorm:"column:asset"`
	Amount         int64     `gorm:"column:amount"`
	DistributedAt  time.Time `gorm:"column:distributed_at"`
}

func (distributionModel) TableName() string {
	return "split_distributions"
}

type balanceModel struct {
	InstanceID string `gorm:"column:instance_id;primaryKey"`
	Recipient  string `gorm:"column:recipient;primaryKey"`
	Asset      string `gorm:"column:asset;primaryKey"`
	Total      int64  `gorm:"column:total"`
}

func (balanceModel) TableName() string {
	return "split_recipient_balances"
}

func (m balanceModel) toEntity() entities.RecipientBalance {
	return entities.RecipientBalance{
		InstanceID: m.InstanceID,
		Recipient:  m.Recipient,
		Asset:      m.Asset,
		Total:      m.Total,
	}
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
	return "split_outbox"
}

func copyOrEmpty(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return append([]string(nil), items...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
