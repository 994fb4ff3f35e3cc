// Package reconciler decides what a newsletter signup should do to the
// subscriber records: create a new one, update a matching one in place,
// or report a conflict. A submission is matched independently on email
// and on phone, so it can hit zero, one, or two existing records.
package reconciler

import (
	"errors"

	"github.com/amachie/folio/server/models"
	"gorm.io/gorm"
)

// Submission is the signup payload from the newsletter form.
type Submission struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Whatsapp bool   `json:"whatsapp"`
}

// Result describes the persistence decision made for a submission.
// Exactly one of Created/Updated/Conflict is set.
type Result struct {
	Subscriber    *models.Subscriber
	Created       bool
	Updated       bool
	UpdatedFields []string

	// Conflict details(strict mode only)
	Conflict    bool
	EmailExists bool
	PhoneExists bool

	// ExistingData reports that the submission matched a record we updated
	// rather than creating a new one. FormerlyConflicting reports that the
	// submission's email & phone belonged to two different records, and a
	// third record was created rather than merging them.
	ExistingData        bool
	FormerlyConflicting bool
}

// Subscribe is the strict signup path: any existing active subscription on
// either key is reported as a conflict & nothing is written. With no match,
// a new active record with an empty history is created.
func Subscribe(submission Submission) (*Result, error) {
	byEmail, err := matchingSubscriber("email", submission.Email, true)
	if err != nil {
		return nil, err
	}

	byPhone, err := matchingSubscriber("phone", submission.Phone, true)
	if err != nil {
		return nil, err
	}

	if byEmail != nil || byPhone != nil {
		return &Result{
			Conflict:    true,
			EmailExists: byEmail != nil,
			PhoneExists: byPhone != nil,
		}, nil
	}

	return createSubscriber(submission)
}

// Reconcile is the create-or-update path used by the signup form's
// footer widget. It never refuses a submission:
//   - both keys on the same record -> update changed fields in place
//   - keys on two different records -> create a third record & leave both
//     existing ones untouched(flagged FormerlyConflicting); merging or
//     deleting either record would throw away someone's audit trail
//   - one key matches -> update that record, including the other key
//   - no match -> create
func Reconcile(submission Submission, source string) (*Result, error) {
	byEmail, err := matchingSubscriber("email", submission.Email, false)
	if err != nil {
		return nil, err
	}

	byPhone, err := matchingSubscriber("phone", submission.Phone, false)
	if err != nil {
		return nil, err
	}

	switch {
	case byEmail == nil && byPhone == nil:
		return createSubscriber(submission)

	case byEmail != nil && byPhone != nil && byEmail.ID != byPhone.ID:
		result, err := createSubscriber(submission)
		if err != nil {
			return nil, err
		}
		result.FormerlyConflicting = true
		return result, nil

	case byEmail != nil && byPhone != nil:
		return updateSubscriber(byEmail, submission, source)

	case byEmail != nil:
		return updateSubscriber(byEmail, submission, source)

	default:
		return updateSubscriber(byPhone, submission, source)
	}
}

// SetActive flips the subscription status of the record matching 'email'.
// Returns gorm.ErrRecordNotFound when no subscriber matches.
func SetActive(email string, active bool, source string) (*models.Subscriber, error) {
	return models.SetSubscriberActiveBy("email", email, active, source)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func matchingSubscriber(field, value string, activeOnly bool) (*models.Subscriber, error) {
	subscriber, err := models.FindSubscriberBy(field, value)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if activeOnly && !subscriber.Active {
		return nil, nil
	}

	return subscriber, nil
}

func createSubscriber(submission Submission) (*Result, error) {
	subscriber := &models.Subscriber{
		Name:     submission.Name,
		Email:    submission.Email,
		Phone:    submission.Phone,
		Whatsapp: submission.Whatsapp,
	}

	err := models.CreateSubscriber(subscriber)
	if err != nil {
		return nil, err
	}

	return &Result{Subscriber: subscriber, Created: true}, nil
}

// updateSubscriber writes the fields whose values differ from the matched
// record, together with one 'field_update' history entry listing exactly
// those fields. A submission that changes nothing writes nothing.
func updateSubscriber(subscriber *models.Subscriber, submission Submission, source string) (*Result, error) {
	changes := map[string]interface{}{}
	fields := []string{}
	previousValues := map[string]interface{}{}
	newValues := map[string]interface{}{}

	diff := func(field string, previous, current interface{}) {
		if previous == current {
			return
		}
		changes[field] = current
		fields = append(fields, field)
		previousValues[field] = previous
		newValues[field] = current
	}

	diff("name", subscriber.Name, submission.Name)
	diff("email", subscriber.Email, submission.Email)
	diff("phone", subscriber.Phone, submission.Phone)
	diff("whatsapp", subscriber.Whatsapp, submission.Whatsapp)

	if len(fields) == 0 {
		return &Result{Subscriber: subscriber, ExistingData: true}, nil
	}

	entry := models.NewHistoryEntry(models.FIELD_UPDATE_ACTION, fields, source, previousValues, newValues)
	err := subscriber.ApplyUpdate(changes, entry)
	if err != nil {
		return nil, err
	}

	subscriber.Name = submission.Name
	subscriber.Email = submission.Email
	subscriber.Phone = submission.Phone
	subscriber.Whatsapp = submission.Whatsapp

	return &Result{
		Subscriber:    subscriber,
		Updated:       true,
		UpdatedFields: fields,
		ExistingData:  true,
	}, nil
}
