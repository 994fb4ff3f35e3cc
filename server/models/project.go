package models

var updatableProjectFields = []string{
	"title", "summary", "description", "repo_url", "demo_url", "tech", "featured", "sort_order",
}

type Project struct {
	BaseModel
	Title       string `json:"title" validate:"required"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	RepoURL     string `json:"repo_url"`
	DemoURL     string `json:"demo_url"`
	Tech        string `json:"tech"`
	Featured    bool   `json:"featured"`
	SortOrder   int    `json:"sort_order"`
}

func (project *Project) Update(data map[string]interface{}) error {
	return db.Model(&Project{}).Where("id = ?", project.ID).Select(updatableProjectFields).Updates(data).Error
}

func FindProjectBy(field string, value interface{}) (*Project, error) {
	project := Project{}
	err := db.First(&project, field+" = ?", value).Error
	if err != nil {
		return nil, err
	}

	return &project, nil
}

func FetchProjects(page int) ([]Project, *Paging, error) {
	var total int64
	projects := []Project{}

	err := db.Model(&Project{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Order("projects.sort_order asc, projects.id desc").Find(&projects).Error
	if err != nil {
		return nil, nil, err
	}

	return projects, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func CreateProject(project *Project) error {
	return db.Create(project).Error
}

func DeleteProject(id interface{}) error {
	return db.Delete(&Project{}, id).Error
}
