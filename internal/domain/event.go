package domain

// Progress event types emitted during an assessment run.
const (
	EventStepStart    = "step_start"
	EventStepComplete = "step_complete"
	EventResult       = "result"
	EventError        = "error"
)

// Stage identifies one step of the assessment pipeline. ID is the stable wire
// identifier; Name is the human-readable label shown while the step runs.
type Stage struct {
	ID   string
	Name string
}

// The three pipeline stages, in execution order.
var (
	StageFetch   = Stage{ID: "fetch_environment", Name: "Scanning local sensors"}
	StageAnalyze = Stage{ID: "analyze_risk", Name: "Analyzing allergy risk"}
	StageAdvise  = Stage{ID: "generate_advice", Name: "Finalizing safety report"}
)

// ProgressEvent is one frame of the assessment progress stream. A run emits
// start/complete pairs for each stage followed by exactly one terminal frame:
// either a result or an error, never both.
type ProgressEvent struct {
	Type    string            `json:"type"`
	Step    string            `json:"step,omitempty"`
	Name    string            `json:"name,omitempty"`
	Data    *AssessmentResult `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
}

// AssessmentResult is the terminal payload of a completed run.
type AssessmentResult struct {
	Location       string                `json:"location"`
	UserAllergies  []string              `json:"user_allergies"`
	WeatherData    EnvironmentalSnapshot `json:"weather_data"`
	RiskAssessment RiskVerdict           `json:"risk_assessment"`
	Advice         string                `json:"advice"`
}

// StepStart frames the beginning of a stage.
func StepStart(s Stage) ProgressEvent {
	return ProgressEvent{Type: EventStepStart, Step: s.ID, Name: s.Name}
}

// StepComplete frames the end of a stage.
func StepComplete(s Stage) ProgressEvent {
	return ProgressEvent{Type: EventStepComplete, Step: s.ID, Name: s.Name}
}

// ResultFrame wraps a finished assessment as the terminal stream event.
func ResultFrame(result AssessmentResult) ProgressEvent {
	return ProgressEvent{Type: EventResult, Data: &result}
}

// ErrorFrame wraps a run failure as the terminal stream event.
func ErrorFrame(message string) ProgressEvent {
	return ProgressEvent{Type: EventError, Message: message}
}
