// Package repository provides data access layer for Overflow Admin.
// This file contains the types shared by the database factory.
package repository

import (
	"context"
)

// Repositories holds all repository instances.
type Repositories struct {
	User    UserRepository
	Content ContentRepository
}

// DatabaseHealth is an interface for database health checks.
// It satisfies handler.HealthChecker for the readiness endpoint.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// Migrator applies and reports embedded schema migrations.
type Migrator interface {
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
	Pending(ctx context.Context) ([]int, error)
}

// Database is a connected backend: health, migrations and close.
type Database interface {
	DatabaseHealth
	Migrator
}
