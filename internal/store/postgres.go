package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"booked/internal/models"
)

// userDoc holds a user's availability document as one jsonb blob; the
// event set is always read and replaced wholesale, so rows-per-event would
// buy nothing.
type userDoc struct {
	UserID       string `gorm:"primaryKey"`
	Availability []byte `gorm:"type:jsonb"`
	UpdatedAt    time.Time
}

type groupRow struct {
	ID      string `gorm:"primaryKey"`
	Name    string
	Members []byte `gorm:"type:jsonb"`
}

type messageRow struct {
	ID      string `gorm:"primaryKey"`
	GroupID string `gorm:"index"`
	Sender  string
	Body    string
	SentAt  time.Time
}

// Postgres is the production DocumentStore backed by PostgreSQL via gorm.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres opens a connection with the given DSN and migrates the
// schema.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v: %w", err, models.ErrSourceUnavailable)
	}
	if err := db.AutoMigrate(&userDoc{}, &groupRow{}, &messageRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) GetUserEvents(ctx context.Context, userID string) ([]models.Event, error) {
	var doc userDoc
	err := p.db.WithContext(ctx).First(&doc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get user events", err)
	}
	var events []models.Event
	if err := json.Unmarshal(doc.Availability, &events); err != nil {
		return nil, fmt.Errorf("corrupt availability document for user %s: %w", userID, err)
	}
	return events, nil
}

func (p *Postgres) PutUserEvents(ctx context.Context, userID string, events []models.Event) error {
	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to encode availability document: %w", err)
	}
	doc := userDoc{UserID: userID, Availability: data, UpdatedAt: time.Now().UTC()}
	if err := p.db.WithContext(ctx).Save(&doc).Error; err != nil {
		return wrap("put user events", err)
	}
	return nil
}

func (p *Postgres) GetGroup(ctx context.Context, groupID string) (models.Group, error) {
	var row groupRow
	err := p.db.WithContext(ctx).First(&row, "id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Group{}, fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return models.Group{}, wrap("get group", err)
	}
	return rowToGroup(row)
}

func (p *Postgres) PutGroup(ctx context.Context, group models.Group) error {
	members, err := json.Marshal(group.Members)
	if err != nil {
		return fmt.Errorf("failed to encode group members: %w", err)
	}
	row := groupRow{ID: group.ID, Name: group.Name, Members: members}
	if err := p.db.WithContext(ctx).Save(&row).Error; err != nil {
		return wrap("put group", err)
	}
	return nil
}

func (p *Postgres) ListGroups(ctx context.Context) ([]models.Group, error) {
	var rows []groupRow
	if err := p.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("list groups", err)
	}
	out := make([]models.Group, 0, len(rows))
	for _, row := range rows {
		g, err := rowToGroup(row)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (p *Postgres) AppendMessage(ctx context.Context, msg models.Message) error {
	row := messageRow{
		ID:      msg.ID,
		GroupID: msg.GroupID,
		Sender:  msg.Sender,
		Body:    msg.Body,
		SentAt:  msg.SentAt,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrap("append message", err)
	}
	return nil
}

func (p *Postgres) ListMessages(ctx context.Context, groupID string) ([]models.Message, error) {
	var rows []messageRow
	if err := p.db.WithContext(ctx).Where("group_id = ?", groupID).Order("sent_at").Find(&rows).Error; err != nil {
		return nil, wrap("list messages", err)
	}
	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Message{
			ID:      row.ID,
			GroupID: row.GroupID,
			Sender:  row.Sender,
			Body:    row.Body,
			SentAt:  row.SentAt,
		})
	}
	return out, nil
}

func rowToGroup(row groupRow) (models.Group, error) {
	g := models.Group{ID: row.ID, Name: row.Name}
	if len(row.Members) > 0 {
		if err := json.Unmarshal(row.Members, &g.Members); err != nil {
			return models.Group{}, fmt.Errorf("corrupt members document for group %s: %w", row.ID, err)
		}
	}
	return g, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, models.ErrSourceUnavailable)
}
