package models

// Gender represents the user's self-reported gender
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
	// GenderUnset is the zero value for a profile that has never been filled in
	GenderUnset Gender = ""
)

// Profile is the user's persisted demographic and health-context record.
// It is saved wholesale on every edit; there is no partial merge.
type Profile struct {
	Age           string `json:"age" validate:"max=8"`
	Gender        Gender `json:"gender" validate:"gender"`
	HealthContext string `json:"health_context" validate:"max=4000"`
}
