package models

type ContactRequest struct {
	BaseModel
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email" gorm:"not null"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

func CreateContactRequest(request *ContactRequest) error {
	return db.Create(request).Error
}

func FetchContactRequests(page int) ([]ContactRequest, *Paging, error) {
	var total int64
	requests := []ContactRequest{}

	err := db.Model(&ContactRequest{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("contact_requests.id desc").Find(&requests).Error
	if err != nil {
		return nil, nil, err
	}

	return requests, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func DeleteContactRequest(id interface{}) error {
	return db.Delete(&ContactRequest{}, id).Error
}
