package models

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	FIELD_UPDATE_ACTION = "field_update"
	UNSUBSCRIBED_ACTION = "unsubscribed"
	RESUBSCRIBED_ACTION = "resubscribed"

	NEWSLETTER_FORM_SOURCE = "newsletter_form"
	ADMIN_PANEL_SOURCE     = "admin_panel"
	SMS_WEBHOOK_SOURCE     = "sms_webhook"
)

// HistoryEntry is one immutable audit record describing a single
// mutation to a subscriber. Entries are only ever appended.
type HistoryEntry struct {
	Date           time.Time              `json:"date"`
	Action         string                 `json:"action"`
	Fields         []string               `json:"fields"`
	Source         string                 `json:"source,omitempty"`
	PreviousValues map[string]interface{} `json:"previous_values,omitempty"`
	NewValues      map[string]interface{} `json:"new_values,omitempty"`
}

type Subscriber struct {
	BaseModel
	Name          string         `json:"name" validate:"required"`
	Email         string         `json:"email" validate:"required,email" gorm:"not null;index"`
	Phone         string         `json:"phone" validate:"required,e164" gorm:"not null;index"`
	Whatsapp      bool           `json:"whatsapp"`
	Active        bool           `json:"active"`
	UpdateHistory datatypes.JSON `json:"update_history"`
}

// NewHistoryEntry builds a single history record. It never touches prior
// entries - appending happens in ApplyUpdate as part of the row update.
func NewHistoryEntry(action string, fields []string, source string,
	previousValues, newValues map[string]interface{}) HistoryEntry {
	return HistoryEntry{
		Date:           time.Now().UTC(),
		Action:         action,
		Fields:         fields,
		Source:         source,
		PreviousValues: previousValues,
		NewValues:      newValues,
	}
}

// History decodes the subscriber's update_history column
func (sub *Subscriber) History() ([]HistoryEntry, error) {
	history := []HistoryEntry{}
	if len(sub.UpdateHistory) == 0 {
		return history, nil
	}

	err := json.Unmarshal(sub.UpdateHistory, &history)
	if err != nil {
		return nil, fmt.Errorf("History: %v", err)
	}

	return history, nil
}

// ApplyUpdate writes 'changes' and the appended history entry to the
// subscriber row in a single UPDATE, so a partial write can't leave the
// audit trail out of step with the fields it describes.
func (sub *Subscriber) ApplyUpdate(changes map[string]interface{}, entry HistoryEntry) error {
	history, err := sub.History()
	if err != nil {
		return err
	}

	historyJSON, err := json.Marshal(append(history, entry))
	if err != nil {
		return fmt.Errorf("ApplyUpdate: %v", err)
	}
	changes["update_history"] = datatypes.JSON(historyJSON)

	return db.Model(sub).Updates(changes).Error
}

func FindSubscriberBy(field string, value interface{}) (*Subscriber, error) {
	subscriber := Subscriber{}
	err := db.First(&subscriber, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &subscriber, nil
}

func CreateSubscriber(subscriber *Subscriber) error {
	subscriber.Active = true
	if len(subscriber.UpdateHistory) == 0 {
		subscriber.UpdateHistory = datatypes.JSON("[]")
	}

	return db.Create(subscriber).Error
}

// SetSubscriberActiveBy flips the subscription status of the record matching
// 'field = value' & appends an 'unsubscribed'/'resubscribed' history entry.
// The unsubscribe & resubscribe endpoints look up by email; the inbound SMS
// webhook looks up by phone.
func SetSubscriberActiveBy(field string, value interface{}, active bool, source string) (*Subscriber, error) {
	subscriber, err := FindSubscriberBy(field, value)
	if err != nil {
		return nil, err
	}

	action := UNSUBSCRIBED_ACTION
	if active {
		action = RESUBSCRIBED_ACTION
	}

	entry := NewHistoryEntry(
		action,
		[]string{"active"},
		source,
		map[string]interface{}{"active": subscriber.Active},
		map[string]interface{}{"active": active},
	)

	err = subscriber.ApplyUpdate(map[string]interface{}{"active": active}, entry)
	if err != nil {
		return nil, err
	}

	subscriber.Active = active
	return subscriber, nil
}

// FetchSubscribers returns subscriber records newest-first
func FetchSubscribers(page int) ([]Subscriber, *Paging, error) {
	var total int64
	subscribers := []Subscriber{}

	err := db.Model(&Subscriber{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("subscribers.id desc").Find(&subscribers).Error
	if err != nil {
		return nil, nil, err
	}

	return subscribers, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

// AllSubscribers returns every record unpaged - meant for exports, not endpoints
func AllSubscribers() ([]Subscriber, error) {
	subscribers := []Subscriber{}

	err := db.Order("subscribers.id desc").Find(&subscribers).Error
	if err != nil {
		return nil, err
	}

	return subscribers, nil
}

func ActiveSubscribers() ([]Subscriber, error) {
	subscribers := []Subscriber{}

	err := db.Where("active = ?", true).Order("subscribers.id desc").Find(&subscribers).Error
	if err != nil {
		return nil, err
	}

	return subscribers, nil
}

// DeleteSubscriber removes the record entirely - admin only, bypasses
// the 'active=false' soft delete.
func DeleteSubscriber(id interface{}) error {
	return db.Delete(&Subscriber{}, id).Error
}

// SubscribersToCSV renders subscriber records as a CSV document - the
// derived view used by the admin export endpoint & the export command.
func SubscribersToCSV(subscribers []Subscriber) (string, error) {
	var sb strings.Builder

	writer := csv.NewWriter(&sb)
	writer.Write([]string{"id", "name", "email", "phone", "whatsapp", "active", "created_at", "last_updated"})

	for _, sub := range subscribers {
		err := writer.Write([]string{
			fmt.Sprint(sub.ID),
			sub.Name,
			sub.Email,
			sub.Phone,
			fmt.Sprint(sub.Whatsapp),
			fmt.Sprint(sub.Active),
			sub.CreatedAt.UTC().Format(time.RFC3339),
			sub.UpdatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return sb.String(), nil
}
