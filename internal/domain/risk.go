package domain

// Condition is a pre-existing health condition that raises exposure risk.
type Condition string

const (
	ConditionAsthma       Condition = "asthma"
	ConditionCOPD         Condition = "copd"
	ConditionHeartDisease Condition = "heartDisease"
	ConditionDiabetes     Condition = "diabetes"
	ConditionPregnancy    Condition = "pregnancy"
	ConditionElderly      Condition = "elderly"
)

// KnownConditions lists every condition the scorer counts.
var KnownConditions = []Condition{
	ConditionAsthma,
	ConditionCOPD,
	ConditionHeartDisease,
	ConditionDiabetes,
	ConditionPregnancy,
	ConditionElderly,
}

// ActivityLevel is how physically active the person usually is.
type ActivityLevel string

const (
	ActivitySedentary ActivityLevel = "sedentary"
	ActivityLight     ActivityLevel = "light"
	ActivityModerate  ActivityLevel = "moderate"
	ActivityHigh      ActivityLevel = "high"
	ActivityAthletic  ActivityLevel = "athletic"
)

// Sensitivity dial positions.
const (
	SensitivityLow    = 0
	SensitivityMedium = 1
	SensitivityHigh   = 2
)

// HealthProfile is the user-declared input to the risk scorer.
type HealthProfile struct {
	Age              int           `json:"age" validate:"gte=0,lte=120"`
	Conditions       []Condition   `json:"conditions" validate:"dive,oneof=asthma copd heartDisease diabetes pregnancy elderly"`
	ActivityLevel    ActivityLevel `json:"activity_level" validate:"required,oneof=sedentary light moderate high athletic"`
	SensitivityLevel int           `json:"sensitivity_level" validate:"gte=0,lte=2"`
}

// ConditionCount returns the number of distinct known conditions in p.
// Duplicates and unrecognized values are ignored.
func (p HealthProfile) ConditionCount() int {
	seen := make(map[Condition]struct{}, len(p.Conditions))
	for _, c := range p.Conditions {
		if !isKnownCondition(c) {
			continue
		}
		seen[c] = struct{}{}
	}
	return len(seen)
}

func isKnownCondition(c Condition) bool {
	for _, k := range KnownConditions {
		if c == k {
			return true
		}
	}
	return false
}

// RiskBreakdown lists the additive terms behind a risk score, before clamping.
type RiskBreakdown struct {
	Base        float64 `json:"base"`
	Age         float64 `json:"age"`
	Conditions  float64 `json:"conditions"`
	Sensitivity float64 `json:"sensitivity"`
	Activity    float64 `json:"activity"`
}

// Total is the unclamped sum of the terms.
func (b RiskBreakdown) Total() float64 {
	return b.Base + b.Age + b.Conditions + b.Sensitivity + b.Activity
}

// RiskAssessment is a personal exposure risk score on a 1–10 scale.
type RiskAssessment struct {
	Score     float64       `json:"score"`
	Category  RiskCategory  `json:"category"`
	Color     string        `json:"color"`
	Breakdown RiskBreakdown `json:"breakdown"`
}

const (
	baseRiskScore   = 3.0
	minRiskScore    = 1.0
	maxRiskScore    = 10.0
	conditionWeight = 1.5
)

// ageBrackets are checked in order; the first bracket the age exceeds applies.
var ageBrackets = []struct {
	over   int
	addend float64
}{
	{over: 65, addend: 2},
	{over: 50, addend: 1},
}

// activityAdjustments: light, moderate and athletic contribute nothing.
var activityAdjustments = map[ActivityLevel]float64{
	ActivitySedentary: 1,
	ActivityHigh:      -0.5,
}

// ScoreRisk computes the risk assessment for p. The score is a clamped
// weighted sum and is not rounded.
func ScoreRisk(p HealthProfile) RiskAssessment {
	b := RiskBreakdown{
		Base:        baseRiskScore,
		Age:         ageAddend(p.Age),
		Conditions:  conditionWeight * float64(p.ConditionCount()),
		Sensitivity: float64(clampSensitivity(p.SensitivityLevel)),
		Activity:    activityAdjustments[p.ActivityLevel],
	}
	score := clamp(b.Total(), minRiskScore, maxRiskScore)
	band := RiskCategories.Lookup(score)
	return RiskAssessment{
		Score:     score,
		Category:  band.Label,
		Color:     band.Color,
		Breakdown: b,
	}
}

func ageAddend(age int) float64 {
	for _, br := range ageBrackets {
		if age > br.over {
			return br.addend
		}
	}
	return 0
}

func clampSensitivity(level int) int {
	return min(max(level, SensitivityLow), SensitivityHigh)
}
