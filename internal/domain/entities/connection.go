package entities

// FieldInfo describes one leaf of a JSON document
type FieldInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// APITestResult is the outcome of a connection test
type APITestResult struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message,omitempty"`
	Error        string      `json:"error,omitempty"`
	ResponseTime int64       `json:"responseTime,omitempty"`
	Status       int         `json:"status,omitempty"`
	Provider     string      `json:"provider,omitempty"`
	Fields       []FieldInfo `json:"fields,omitempty"`
}

// FieldSuggestion lists available fields resembling a missing one
type FieldSuggestion struct {
	Missing      string   `json:"missing"`
	Alternatives []string `json:"alternatives"`
}

// ValidationResult compares a response against the fields a widget expects
type ValidationResult struct {
	IsValid         bool              `json:"isValid"`
	Error           string            `json:"error,omitempty"`
	AvailableFields []string          `json:"availableFields"`
	MissingFields   []string          `json:"missingFields"`
	Suggestions     []FieldSuggestion `json:"suggestions"`
}

// HealthState is the reachability of one provider
type HealthState string

const (
	HealthUnknown HealthState = "unknown"
	HealthHealthy HealthState = "healthy"
	HealthError   HealthState = "error"
)

// ProviderHealth is the health check outcome for a provider
type ProviderHealth struct {
	Status       HealthState `json:"status"`
	ResponseTime int64       `json:"response_time,omitempty"`
	Error        string      `json:"error,omitempty"`
}
