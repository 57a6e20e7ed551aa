package domain

// UnknownPartName is returned by the classifier when no part is recognized
const UnknownPartName = "غير معروف"

// AISearchResult is the structured output of the image classifier
type AISearchResult struct {
	DetectedName        string   `json:"detectedName"`
	Confidence          float64  `json:"confidence" validate:"gte=0,lte=1"`
	Description         string   `json:"description"`
	PossiblePartNumbers []string `json:"possiblePartNumbers"`
}

// Recognized reports whether the classifier identified a concrete part
func (r *AISearchResult) Recognized() bool {
	return r != nil && r.DetectedName != "" && r.DetectedName != UnknownPartName
}
