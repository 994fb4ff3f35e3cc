package models

const (
	NEW_SERVICE_REQUEST       = "new"
	IN_REVIEW_SERVICE_REQUEST = "in-review"
	CLOSED_SERVICE_REQUEST    = "closed"
)

var ServiceRequestStatusMap = map[string]bool{
	NEW_SERVICE_REQUEST:       true,
	IN_REVIEW_SERVICE_REQUEST: true,
	CLOSED_SERVICE_REQUEST:    true,
}

type ServiceRequest struct {
	BaseModel
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email" gorm:"not null"`
	Phone       string `json:"phone"`
	ServiceType string `json:"service_type" validate:"required"`
	Details     string `json:"details"`
	Status      string `json:"status" gorm:"default:new"`
}

func (request *ServiceRequest) UpdateStatus(status string) error {
	return db.Model(&ServiceRequest{}).Where("id = ?", request.ID).Update("status", status).Error
}

func CreateServiceRequest(request *ServiceRequest) error {
	request.Status = NEW_SERVICE_REQUEST
	return db.Create(request).Error
}

func FindServiceRequestBy(field string, value interface{}) (*ServiceRequest, error) {
	request := ServiceRequest{}
	err := db.First(&request, field+" = ?", value).Error
	if err != nil {
		return nil, err
	}

	return &request, nil
}

func FetchServiceRequests(page int) ([]ServiceRequest, *Paging, error) {
	var total int64
	requests := []ServiceRequest{}

	err := db.Model(&ServiceRequest{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("service_requests.id desc").Find(&requests).Error
	if err != nil {
		return nil, nil, err
	}

	return requests, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func DeleteServiceRequest(id interface{}) error {
	return db.Delete(&ServiceRequest{}, id).Error
}
