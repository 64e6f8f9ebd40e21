//go:build integration

// Package testdb provides utilities specifically for database testing.
// It opens a real PostgreSQL database named by the environment, applies the
// embedded migrations and gives each test a clean products table.
package testdb
