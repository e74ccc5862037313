package exchangerate

// envelope is common to every v6 response
type envelope struct {
	Result    string `json:"result"`
	ErrorType string `json:"error-type"`
}

type latestResponse struct {
	envelope
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64              `json:"time_next_update_unix"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

type pairResponse struct {
	envelope
	BaseCode           string  `json:"base_code"`
	TargetCode         string  `json:"target_code"`
	ConversionRate     float64 `json:"conversion_rate"`
	ConversionResult   float64 `json:"conversion_result"`
	TimeLastUpdateUnix int64   `json:"time_last_update_unix"`
	TimeNextUpdateUnix int64   `json:"time_next_update_unix"`
}

type codesResponse struct {
	envelope
	SupportedCodes [][2]string `json:"supported_codes"`
}
