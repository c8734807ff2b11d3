package dtos

type Response struct {
	Success bool        `json:"success"`
	Error   *string     `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type PaginationRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}
