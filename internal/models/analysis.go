package models

// ImageQualityCheck reports whether the submitted photos could be interpreted.
// An unclear result is a valid terminal outcome, not a service failure.
type ImageQualityCheck struct {
	IsUnclear bool   `json:"is_unclear"`
	Reason    string `json:"reason,omitempty"`
}

// CalorieAnalysis is the optional calorie verdict for the scanned product.
// Absent when the analysis produced no calorie data.
type CalorieAnalysis struct {
	ProductCalories int    `json:"product_calories"`
	UserDailyNeed   int    `json:"user_daily_need"`
	Percentage      int    `json:"percentage"`
	Note            string `json:"note,omitempty"`
}

// Recommendation is one alternative product suggested by the analysis
type Recommendation struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AnalysisResult is the structured personalized verdict for one scan.
// When ImageQualityCheck.IsUnclear is true all other fields carry no
// meaning and the result must never be written to history.
type AnalysisResult struct {
	ImageQualityCheck ImageQualityCheck `json:"image_quality_check"`
	CalorieAnalysis   *CalorieAnalysis  `json:"calorie_analysis,omitempty"`
	Summary           string            `json:"summary"`
	Pros              []string          `json:"pros"`
	Cons              []string          `json:"cons"`
	Recommendations   []Recommendation  `json:"recommendations"`
}
