package dto

// PagedResponse wraps a paginated collection.
type PagedResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewPagedResponse assembles pagination metadata from a page/size pair and
// a total row count.
func NewPagedResponse[T any](items []T, page, pageSize int, total int64) PagedResponse[T] {
	if items == nil {
		items = []T{}
	}
	pages := int64(0)
	if pageSize > 0 {
		pages = (total + int64(pageSize) - 1) / int64(pageSize)
	}
	return PagedResponse[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}
}
