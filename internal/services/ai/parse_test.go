package ai

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/benvon/scanwise/internal/models"
)

var errTest = errors.New("connection refused")

const clearResponse = `{
	"imageQualityCheck": {"isUnclear": false, "reason": ""},
	"calorieAnalysis": {"productCalories": 250, "userDailyNeed": 2000, "percentage": 13, "note": "per 100g"},
	"summary": "Reasonable snack in moderation.",
	"pros": ["high protein"],
	"cons": ["high sugar"],
	"recommendations": [{"name": "Plain yogurt", "reason": "less sugar"}]
}`

func TestParseAnalysisResponse(t *testing.T) {
	t.Parallel()

	result, err := parseAnalysisResponse(clearResponse)
	if err != nil {
		t.Fatalf("parseAnalysisResponse returned error: %v", err)
	}

	if result.ImageQualityCheck.IsUnclear {
		t.Error("IsUnclear = true, want false")
	}
	if result.Summary != "Reasonable snack in moderation." {
		t.Errorf("Summary = %q", result.Summary)
	}
	if result.CalorieAnalysis == nil {
		t.Fatal("CalorieAnalysis is nil")
	}
	if result.CalorieAnalysis.ProductCalories != 250 || result.CalorieAnalysis.Percentage != 13 {
		t.Errorf("CalorieAnalysis = %+v", result.CalorieAnalysis)
	}
	if len(result.Pros) != 1 || len(result.Cons) != 1 {
		t.Errorf("Pros/Cons = %v / %v", result.Pros, result.Cons)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0].Name != "Plain yogurt" {
		t.Errorf("Recommendations = %+v", result.Recommendations)
	}
}

func TestParseAnalysisResponseUnclearVoidsOtherFields(t *testing.T) {
	t.Parallel()

	response := `{
		"imageQualityCheck": {"isUnclear": true, "reason": "photo is blurry"},
		"summary": "should be ignored",
		"pros": ["ignored"],
		"calorieAnalysis": {"productCalories": 100, "userDailyNeed": 2000, "percentage": 5, "note": ""}
	}`

	result, err := parseAnalysisResponse(response)
	if err != nil {
		t.Fatalf("parseAnalysisResponse returned error: %v", err)
	}

	if !result.ImageQualityCheck.IsUnclear {
		t.Fatal("IsUnclear = false, want true")
	}
	if result.ImageQualityCheck.Reason != "photo is blurry" {
		t.Errorf("Reason = %q", result.ImageQualityCheck.Reason)
	}
	if result.Summary != "" || result.CalorieAnalysis != nil || len(result.Pros) != 0 {
		t.Errorf("unclear verdict must void other fields, got %+v", result)
	}
}

func TestParseAnalysisResponseMissingCalorieAnalysis(t *testing.T) {
	t.Parallel()

	response := `{"imageQualityCheck": {"isUnclear": false}, "summary": "ok", "pros": [], "cons": [], "recommendations": []}`
	result, err := parseAnalysisResponse(response)
	if err != nil {
		t.Fatalf("parseAnalysisResponse returned error: %v", err)
	}
	if result.CalorieAnalysis != nil {
		t.Errorf("CalorieAnalysis = %+v, want nil when omitted", result.CalorieAnalysis)
	}
}

func TestParseAnalysisResponseWrappedInProse(t *testing.T) {
	t.Parallel()

	wrapped := "Here is the analysis you asked for:\n```json\n" + clearResponse + "\n```\nLet me know if you need more."
	result, err := parseAnalysisResponse(wrapped)
	if err != nil {
		t.Fatalf("parseAnalysisResponse returned error: %v", err)
	}
	if result.Summary != "Reasonable snack in moderation." {
		t.Errorf("Summary = %q", result.Summary)
	}
}

func TestParseAnalysisResponseInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"prose only", "I could not analyze the image."},
		{"broken json", `{"imageQualityCheck": {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseAnalysisResponse(tt.content); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	t.Parallel()

	p := models.Profile{Age: "34", Gender: models.GenderFemale, HealthContext: "lactose intolerant"}
	prompt := buildAnalysisPrompt(p, 2)

	for _, want := range []string{"34", "female", "lactose intolerant", "2 attached photo(s)"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	cfgErr := &ConfigError{Reason: "OPENAI_API_KEY is not set"}
	if got := UserMessage(cfgErr); got != "OPENAI_API_KEY is not set" {
		t.Errorf("UserMessage for config error = %q, want the reason verbatim", got)
	}

	wrapped := fmt.Errorf("starting scan: %w", cfgErr)
	if got := UserMessage(wrapped); got != "OPENAI_API_KEY is not set" {
		t.Errorf("UserMessage for wrapped config error = %q, want the reason verbatim", got)
	}

	other := UserMessage(errTest)
	if !strings.Contains(other, "analysis failed") {
		t.Errorf("UserMessage for transient error = %q", other)
	}

	if UserMessage(nil) != "" {
		t.Error("UserMessage(nil) should be empty")
	}
}

func TestNewOpenAIGatewayRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIGateway("", "", "", nil, false)
	if err == nil {
		t.Fatal("expected an error without an API key")
	}
	if !IsConfigError(err) {
		t.Errorf("expected a ConfigError, got %T", err)
	}
}
