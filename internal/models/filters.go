package models

// RowFilter represents pagination parameters for listing training rows
type RowFilter struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// Normalize clamps pagination to sane bounds
func (f *RowFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 100
	}
	if f.PageSize > 1000 {
		f.PageSize = 1000
	}
}

// RowsResponse represents a paginated page of flat training rows
type RowsResponse struct {
	Columns    []string    `json:"columns"`
	Data       [][]float64 `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// RunFilter represents filter parameters for listing preparation runs
type RunFilter struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}
