package interfaces

import (
	"context"

	"finboard-service/internal/domain/entities"
)

// DataFetcher resolves a logical data source into normalized data
//
//go:generate mockgen -source=data_service.go -destination=../../application/refresh/mock_fetcher_test.go -package=refresh -exclude_interfaces=ConnectionTester
type DataFetcher interface {
	FetchData(ctx context.Context, source entities.DataSource, opts entities.FetchOptions) (any, error)
}

// ConnectionTester checks endpoints before they are bound to widgets
type ConnectionTester interface {
	TestAPIConnection(ctx context.Context, url string) (*entities.APITestResult, error)
	ValidateAPIResponse(ctx context.Context, url string, expected []string) (*entities.ValidationResult, error)
	GetAPIHealthStatus(ctx context.Context) map[string]entities.ProviderHealth
}
