package services

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID    string
	Email string
}

// ListRequest is the pagination shared by list endpoints.
type ListRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

func (r *ListRequest) normalize() {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

func (r *ListRequest) offset() int {
	return (r.Page - 1) * r.PageSize
}
