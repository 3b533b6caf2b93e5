package domain

type Status string

const (
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// AllStatuses lists every valid status in display order.
var AllStatuses = []Status{StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// IsValid reports whether s is one of the four enumerated statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// StatusCounts is the fixed-shape aggregation result for one owner.
// Statuses with no records report zero, never absent.
type StatusCounts struct {
	Total     int `json:"total"`
	Applied   int `json:"Applied"`
	Interview int `json:"Interview"`
	Offer     int `json:"Offer"`
	Rejected  int `json:"Rejected"`
}

// Add increments the counter for the given status and the total.
// Unknown statuses count toward the total only; the store rejects
// them at write time so this is unreachable in practice.
func (c *StatusCounts) Add(s Status, n int) {
	switch s {
	case StatusApplied:
		c.Applied += n
	case StatusInterview:
		c.Interview += n
	case StatusOffer:
		c.Offer += n
	case StatusRejected:
		c.Rejected += n
	}
	c.Total += n
}
