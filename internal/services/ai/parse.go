package ai

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/benvon/scanwise/internal/models"
)

// Wire types mirror the response contract field-for-field. A missing
// calorieAnalysis means "no calorie data", never an error.
type wireResult struct {
	ImageQualityCheck wireQualityCheck     `json:"imageQualityCheck"`
	CalorieAnalysis   *wireCalorieAnalysis `json:"calorieAnalysis"`
	Summary           string               `json:"summary"`
	Pros              []string             `json:"pros"`
	Cons              []string             `json:"cons"`
	Recommendations   []wireRecommendation `json:"recommendations"`
}

type wireQualityCheck struct {
	IsUnclear bool   `json:"isUnclear"`
	Reason    string `json:"reason"`
}

type wireCalorieAnalysis struct {
	ProductCalories int    `json:"productCalories"`
	UserDailyNeed   int    `json:"userDailyNeed"`
	Percentage      int    `json:"percentage"`
	Note            string `json:"note"`
}

type wireRecommendation struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// parseAnalysisResponse decodes the provider's JSON verdict. Models sometimes
// wrap the JSON in prose or fences, so a failed decode retries on the
// outermost brace-delimited slice before giving up.
func parseAnalysisResponse(content string) (*models.AnalysisResult, error) {
	var wire wireResult
	raw := content
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		start := bytes.Index([]byte(raw), []byte("{"))
		end := bytes.LastIndex([]byte(raw), []byte("}"))
		if start == -1 || end == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse analysis response: %w", err)
		}
		raw = raw[start : end+1]
		if err := json.Unmarshal([]byte(raw), &wire); err != nil {
			return nil, fmt.Errorf("failed to parse analysis response: %w", err)
		}
	}

	result := &models.AnalysisResult{
		ImageQualityCheck: models.ImageQualityCheck{
			IsUnclear: wire.ImageQualityCheck.IsUnclear,
			Reason:    wire.ImageQualityCheck.Reason,
		},
		Summary: wire.Summary,
	}

	// An unclear verdict voids every other field
	if wire.ImageQualityCheck.IsUnclear {
		result.Summary = ""
		return result, nil
	}

	if wire.CalorieAnalysis != nil {
		result.CalorieAnalysis = &models.CalorieAnalysis{
			ProductCalories: wire.CalorieAnalysis.ProductCalories,
			UserDailyNeed:   wire.CalorieAnalysis.UserDailyNeed,
			Percentage:      wire.CalorieAnalysis.Percentage,
			Note:            wire.CalorieAnalysis.Note,
		}
	}
	result.Pros = wire.Pros
	result.Cons = wire.Cons
	for _, rec := range wire.Recommendations {
		result.Recommendations = append(result.Recommendations, models.Recommendation{
			Name:   rec.Name,
			Reason: rec.Reason,
		})
	}
	return result, nil
}
