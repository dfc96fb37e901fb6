// Package mocks holds gomock doubles for the repository ports.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go authgate/internal/auth UserRepository
