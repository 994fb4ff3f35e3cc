package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyUpdateWritesFieldsAndHistoryTogether(t *testing.T) {
	InitializeTestDb()

	subscriber := &Subscriber{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001"}
	assert.Nil(t, CreateSubscriber(subscriber))
	assert.True(t, subscriber.Active)

	entry := NewHistoryEntry(
		FIELD_UPDATE_ACTION,
		[]string{"name"},
		NEWSLETTER_FORM_SOURCE,
		map[string]interface{}{"name": "Ada"},
		map[string]interface{}{"name": "Ada Lovelace"},
	)
	assert.Nil(t, subscriber.ApplyUpdate(map[string]interface{}{"name": "Ada Lovelace"}, entry))

	found, err := FindSubscriberBy("id", subscriber.ID)
	assert.Nil(t, err)
	assert.Equal(t, "Ada Lovelace", found.Name)

	history, err := found.History()
	assert.Nil(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, FIELD_UPDATE_ACTION, history[0].Action)
	assert.Equal(t, []string{"name"}, history[0].Fields)
	assert.False(t, history[0].Date.IsZero())
}

func TestSetSubscriberActiveByPhone(t *testing.T) {
	InitializeTestDb()

	subscriber := &Subscriber{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001"}
	assert.Nil(t, CreateSubscriber(subscriber))

	updated, err := SetSubscriberActiveBy("phone", "+14165550001", false, SMS_WEBHOOK_SOURCE)
	assert.Nil(t, err)
	assert.False(t, updated.Active)

	history, err := updated.History()
	assert.Nil(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, UNSUBSCRIBED_ACTION, history[0].Action)
	assert.Equal(t, SMS_WEBHOOK_SOURCE, history[0].Source)
}

func TestFetchSubscribersNewestFirst(t *testing.T) {
	InitializeTestDb()

	assert.Nil(t, CreateSubscriber(&Subscriber{Name: "First", Email: "first@example.com", Phone: "+14165550001"}))
	assert.Nil(t, CreateSubscriber(&Subscriber{Name: "Second", Email: "second@example.com", Phone: "+14165550002"}))

	subscribers, paging, err := FetchSubscribers(1)
	assert.Nil(t, err)
	assert.Equal(t, int64(2), paging.Total)
	assert.Equal(t, "Second", subscribers[0].Name)
	assert.Equal(t, "First", subscribers[1].Name)
}

func TestSubscribersToCSV(t *testing.T) {
	InitializeTestDb()

	assert.Nil(t, CreateSubscriber(&Subscriber{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001"}))

	subscribers, err := ActiveSubscribers()
	assert.Nil(t, err)

	csvDoc, err := SubscribersToCSV(subscribers)
	assert.Nil(t, err)

	lines := strings.Split(strings.TrimSpace(csvDoc), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "id,name,email,phone,whatsapp,active,created_at,last_updated", lines[0])
	assert.Contains(t, lines[1], "ada@example.com")
	assert.Contains(t, lines[1], "+14165550001")
}
