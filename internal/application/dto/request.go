package dto

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"finboard-service/internal/domain/entities"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidQuery   = errors.New("invalid query parameter")
)

// WidgetConfigRequest is the editable part of a widget
type WidgetConfigRequest struct {
	DataSource      string   `json:"dataSource" validate:"required,datasource"`
	DisplayFields   []string `json:"displayFields" validate:"omitempty,dive,required"`
	RefreshInterval int      `json:"refreshInterval" validate:"gte=0,lte=86400"`
	entities.FetchOptions
}

// AddWidgetRequest creates a widget
type AddWidgetRequest struct {
	Type   string              `json:"type" validate:"required,oneof=table card chart"`
	Title  string              `json:"title" validate:"required,max=100"`
	Config WidgetConfigRequest `json:"config"`
}

// UpdateWidgetRequest changes the title, the config or both
type UpdateWidgetRequest struct {
	Title  *string              `json:"title" validate:"omitempty,min=1,max=100"`
	Config *WidgetConfigRequest `json:"config"`
}

// ReorderWidgetsRequest lists every widget id in the new order
type ReorderWidgetsRequest struct {
	Order []string `json:"order" validate:"required,min=1,dive,required"`
}

// TestConnectionRequest asks to reach an arbitrary URL
type TestConnectionRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ValidateResponseRequest checks that a URL's response carries the fields
type ValidateResponseRequest struct {
	URL            string   `json:"url" validate:"required,url"`
	ExpectedFields []string `json:"expectedFields" validate:"required,min=1,dive,required"`
}

// UpdateSettingsRequest changes the refresh preferences. The interval is in
// milliseconds.
type UpdateSettingsRequest struct {
	AutoRefresh           *bool  `json:"autoRefresh"`
	GlobalRefreshInterval *int64 `json:"globalRefreshInterval" validate:"omitempty,min=1000"`
}

// Validator wraps go-playground/validator with the dashboard's rules
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the datasource rule
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("datasource", func(fl validator.FieldLevel) bool {
		return entities.DataSource(fl.Field().String()).Valid()
	})
	return &Validator{validate: v}
}

// Struct validates req and checks the rules that span fields
func (v *Validator) Struct(req any) error {
	if err := v.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(err))
	}

	switch r := req.(type) {
	case *AddWidgetRequest:
		return v.config(&r.Config)
	case *UpdateWidgetRequest:
		if r.Config != nil {
			return v.config(r.Config)
		}
	}
	return nil
}

func (v *Validator) config(cfg *WidgetConfigRequest) error {
	if entities.DataSource(cfg.DataSource) != entities.SourceCustom {
		return nil
	}
	if err := v.validate.Var(cfg.APIURL, "required,url"); err != nil {
		return fmt.Errorf("%w: apiUrl must be a valid URL for custom widgets", ErrInvalidRequest)
	}
	return nil
}

// describe renders validation errors as "field rule" pairs
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, "; ")
}

// FetchOptionsFromQuery reads /api/v1/data/{source} query parameters
func FetchOptionsFromQuery(q url.Values) (entities.FetchOptions, error) {
	opts := entities.FetchOptions{
		Symbol:     strings.TrimSpace(q.Get("symbol")),
		Pair:       strings.TrimSpace(q.Get("pair")),
		Timeframe:  strings.TrimSpace(q.Get("timeframe")),
		Interval:   strings.TrimSpace(q.Get("interval")),
		VsCurrency: strings.TrimSpace(q.Get("vs")),
		APIURL:     strings.TrimSpace(q.Get("apiUrl")),
	}

	if raw := q.Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				opts.Symbols = append(opts.Symbols, s)
			}
		}
	}

	var err error
	if opts.Limit, err = intParam(q, "limit"); err != nil {
		return opts, err
	}
	if opts.Days, err = intParam(q, "days"); err != nil {
		return opts, err
	}
	if opts.IncludeProfile, err = boolParam(q, "includeProfile"); err != nil {
		return opts, err
	}
	if opts.ForceRefresh, err = boolParam(q, "forceRefresh"); err != nil {
		return opts, err
	}
	return opts, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidQuery, name)
	}
	return n, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidQuery, name)
	}
	return b, nil
}
