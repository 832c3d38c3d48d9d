package entities

// CriticalPath is the longest cumulative lead-time chain below a top-level item
type CriticalPath struct {
	Root           ItemID   `json:"root"`
	Path           []ItemID `json:"path"`
	TotalLeadTime  int      `json:"total_lead_time"`
	BottleneckItem ItemID   `json:"bottleneck_item"` // item with the longest own lead time on the path
}
