package domain

// Order is a resting order-book entry. The book is a multiset: entries have
// no identity and no uniqueness constraint, display ordering is always
// recomputed from scratch.
type Order struct {
	Side     Side    `json:"side"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}
