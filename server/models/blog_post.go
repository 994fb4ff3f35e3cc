package models

import "gorm.io/gorm"

var updatableBlogPostFields = []string{"title", "slug", "summary", "body", "tags", "published"}

type BlogPost struct {
	BaseModel
	Title     string `json:"title" validate:"required"`
	Slug      string `json:"slug" validate:"required" gorm:"not null;unique"`
	Summary   string `json:"summary"`
	Body      string `json:"body" validate:"required"`
	Tags      string `json:"tags"`
	Published bool   `json:"published"`
}

func (post *BlogPost) Update(data map[string]interface{}) error {
	return db.Model(&BlogPost{}).Where("id = ?", post.ID).Select(updatableBlogPostFields).Updates(data).Error
}

func FindBlogPostBy(field string, value interface{}) (*BlogPost, error) {
	post := BlogPost{}
	err := db.First(&post, field+" = ?", value).Error
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// FetchBlogPosts returns posts newest-first. Unpublished drafts are
// only included when 'includeDrafts' is set(admin listing).
func FetchBlogPosts(page int, includeDrafts bool) ([]BlogPost, *Paging, error) {
	var total int64
	posts := []BlogPost{}

	publishedOnly := func(query *gorm.DB) *gorm.DB {
		if includeDrafts {
			return query
		}
		return query.Where("published = ?", true)
	}

	err := db.Model(&BlogPost{}).Scopes(publishedOnly).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(publishedOnly, paginate(page, MAX_PAGE_SIZE)).
		Order("blog_posts.id desc").Find(&posts).Error
	if err != nil {
		return nil, nil, err
	}

	return posts, newPaging(int64(page), MAX_PAGE_SIZE, total), nil
}

func CreateBlogPost(post *BlogPost) error {
	return db.Create(post).Error
}

func DeleteBlogPost(id interface{}) error {
	return db.Delete(&BlogPost{}, id).Error
}
