package reconciler

import (
	"testing"

	"github.com/amachie/folio/server/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func seedSubscriber(t *testing.T, name, email, phone string) *models.Subscriber {
	subscriber := &models.Subscriber{Name: name, Email: email, Phone: phone}
	err := models.CreateSubscriber(subscriber)
	assert.Nil(t, err)

	return subscriber
}

func subscriberCount(t *testing.T) int64 {
	_, paging, err := models.FetchSubscribers(1)
	assert.Nil(t, err)

	return paging.Total
}

func TestSubscribeCreatesRecordWhenNothingMatches(t *testing.T) {
	models.InitializeTestDb()

	result, err := Subscribe(Submission{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Phone: "+14165550001",
	})
	assert.Nil(t, err)
	assert.True(t, result.Created)
	assert.False(t, result.Conflict)
	assert.True(t, result.Subscriber.Active, "new subscribers should be active")

	history, err := result.Subscriber.History()
	assert.Nil(t, err)
	assert.Empty(t, history, "new subscribers should have an empty history")
	assert.Equal(t, int64(1), subscriberCount(t))
}

func TestSubscribeReportsConflictingFields(t *testing.T) {
	models.InitializeTestDb()

	seedSubscriber(t, "Ada", "ada@example.com", "+14165550001")
	seedSubscriber(t, "Grace", "grace@example.com", "+14165550002")

	// email from one record, phone from the other
	result, err := Subscribe(Submission{Name: "Mix", Email: "ada@example.com", Phone: "+14165550002"})
	assert.Nil(t, err)
	assert.True(t, result.Conflict)
	assert.True(t, result.EmailExists)
	assert.True(t, result.PhoneExists)

	// only the email collides
	result, err = Subscribe(Submission{Name: "Ada", Email: "ada@example.com", Phone: "+14165550099"})
	assert.Nil(t, err)
	assert.True(t, result.Conflict)
	assert.True(t, result.EmailExists)
	assert.False(t, result.PhoneExists)

	// only the phone collides
	result, err = Subscribe(Submission{Name: "Ada", Email: "new@example.com", Phone: "+14165550001"})
	assert.Nil(t, err)
	assert.True(t, result.Conflict)
	assert.False(t, result.EmailExists)
	assert.True(t, result.PhoneExists)

	assert.Equal(t, int64(2), subscriberCount(t), "conflicting submissions should write nothing")
}

func TestSubscribeIgnoresInactiveRecords(t *testing.T) {
	models.InitializeTestDb()

	seedSubscriber(t, "Ada", "ada@example.com", "+14165550001")
	_, err := SetActive("ada@example.com", false, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)

	// an unsubscribed record no longer blocks a fresh signup
	result, err := Subscribe(Submission{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001"})
	assert.Nil(t, err)
	assert.True(t, result.Created)
}

func TestReconcileIdenticalResubmission(t *testing.T) {
	models.InitializeTestDb()

	submission := Submission{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001", Whatsapp: true}

	first, err := Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)
	assert.True(t, first.Created)

	second, err := Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)
	assert.False(t, second.Created)
	assert.False(t, second.Updated, "identical resubmission should be a no-op")
	assert.True(t, second.ExistingData)
	assert.Equal(t, first.Subscriber.ID, second.Subscriber.ID)
	assert.Equal(t, int64(1), subscriberCount(t))

	history, err := second.Subscriber.History()
	assert.Nil(t, err)
	assert.Empty(t, history, "a no-op should not append a history entry")
}

func TestReconcilePartialMatchUpdatesInPlace(t *testing.T) {
	models.InitializeTestDb()

	seeded := seedSubscriber(t, "Old Name", "ada@example.com", "+14165550001")

	result, err := Reconcile(
		Submission{Name: "New Name", Email: "ada@example.com", Phone: "+14165550009"},
		models.NEWSLETTER_FORM_SOURCE,
	)
	assert.Nil(t, err)
	assert.True(t, result.Updated)
	assert.True(t, result.ExistingData)
	assert.Equal(t, seeded.ID, result.Subscriber.ID, "should update the matched record, not create one")
	assert.Equal(t, []string{"name", "phone"}, result.UpdatedFields)
	assert.Equal(t, int64(1), subscriberCount(t))

	updated, err := models.FindSubscriberBy("id", seeded.ID)
	assert.Nil(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "+14165550009", updated.Phone)

	history, err := updated.History()
	assert.Nil(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, models.FIELD_UPDATE_ACTION, history[0].Action)
	assert.Equal(t, []string{"name", "phone"}, history[0].Fields)
	assert.Equal(t, "Old Name", history[0].PreviousValues["name"])
	assert.Equal(t, "+14165550001", history[0].PreviousValues["phone"])
	assert.Equal(t, "New Name", history[0].NewValues["name"])
	assert.Equal(t, "+14165550009", history[0].NewValues["phone"])
	assert.Equal(t, models.NEWSLETTER_FORM_SOURCE, history[0].Source)
}

func TestReconcileCrossConflictCreatesNewRecord(t *testing.T) {
	models.InitializeTestDb()

	recordA := seedSubscriber(t, "Ada", "ada@example.com", "+14165550001")
	recordB := seedSubscriber(t, "Grace", "grace@example.com", "+14165550002")

	result, err := Reconcile(
		Submission{Name: "Mix", Email: "ada@example.com", Phone: "+14165550002"},
		models.NEWSLETTER_FORM_SOURCE,
	)
	assert.Nil(t, err)
	assert.True(t, result.Created)
	assert.True(t, result.FormerlyConflicting)
	assert.NotEqual(t, recordA.ID, result.Subscriber.ID)
	assert.NotEqual(t, recordB.ID, result.Subscriber.ID)
	assert.Equal(t, int64(3), subscriberCount(t))

	// both pre-existing records are left untouched
	for _, seeded := range []*models.Subscriber{recordA, recordB} {
		found, err := models.FindSubscriberBy("id", seeded.ID)
		assert.Nil(t, err)
		assert.Equal(t, seeded.Name, found.Name)
		assert.Equal(t, seeded.Email, found.Email)
		assert.Equal(t, seeded.Phone, found.Phone)

		history, err := found.History()
		assert.Nil(t, err)
		assert.Empty(t, history)
	}
}

func TestSetActiveRoundTrip(t *testing.T) {
	models.InitializeTestDb()

	seedSubscriber(t, "Ada", "ada@example.com", "+14165550001")

	unsubscribed, err := SetActive("ada@example.com", false, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)
	assert.False(t, unsubscribed.Active)

	resubscribed, err := SetActive("ada@example.com", true, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)
	assert.True(t, resubscribed.Active)

	history, err := resubscribed.History()
	assert.Nil(t, err)
	assert.Len(t, history, 2)

	assert.Equal(t, models.UNSUBSCRIBED_ACTION, history[0].Action)
	assert.Equal(t, true, history[0].PreviousValues["active"])
	assert.Equal(t, false, history[0].NewValues["active"])

	assert.Equal(t, models.RESUBSCRIBED_ACTION, history[1].Action)
	assert.Equal(t, false, history[1].PreviousValues["active"])
	assert.Equal(t, true, history[1].NewValues["active"])
}

func TestSetActiveUnknownEmail(t *testing.T) {
	models.InitializeTestDb()

	_, err := SetActive("nobody@example.com", false, models.NEWSLETTER_FORM_SOURCE)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	models.InitializeTestDb()

	submission := Submission{Name: "Ada", Email: "ada@example.com", Phone: "+14165550001"}
	_, err := Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)

	submission.Name = "Ada L."
	result, err := Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)

	firstSnapshot, err := result.Subscriber.History()
	assert.Nil(t, err)
	assert.Len(t, firstSnapshot, 1)

	_, err = SetActive("ada@example.com", false, models.ADMIN_PANEL_SOURCE)
	assert.Nil(t, err)

	submission.Whatsapp = true
	result, err = Reconcile(submission, models.NEWSLETTER_FORM_SOURCE)
	assert.Nil(t, err)

	history, err := result.Subscriber.History()
	assert.Nil(t, err)
	assert.Len(t, history, 3, "every mutation should append exactly one entry")

	// the first entry is exactly what it was before later mutations
	assert.Equal(t, firstSnapshot[0].Action, history[0].Action)
	assert.Equal(t, firstSnapshot[0].Fields, history[0].Fields)
	assert.Equal(t, firstSnapshot[0].PreviousValues, history[0].PreviousValues)
	assert.Equal(t, firstSnapshot[0].NewValues, history[0].NewValues)
}
