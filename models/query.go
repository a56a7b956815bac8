package models

// QueryTags is the (location, category) pair interpreted from a free-text query.
// An empty Location or Category means the tag was not detected.
type QueryTags struct {
	Location string `json:"location,omitempty"`
	Category string `json:"category,omitempty"`
	// Language is the detected query language, informational only.
	Language string `json:"language,omitempty"`
}

func (t QueryTags) HasLocation() bool { return t.Location != "" }

func (t QueryTags) HasCategory() bool { return t.Category != "" }
