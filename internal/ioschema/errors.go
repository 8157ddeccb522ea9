package ioschema

import (
	"fmt"

	"github.com/gnames/gn"
	"github.com/gnames/gncldf/pkg/errcode"
)

// NotConnectedError creates an error for when schema
// operation is attempted without database connection.
func NotConnectedError() error {
	msg := "Schema operation attempted without database connection"

	return &gn.Error{
		Code: errcode.DBNotConnectedError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("not connected to database"),
	}
}

// GORMConnectionError creates an error for GORM
// connection failures.
func GORMConnectionError(err error) error {
	msg := `Cannot connect to database with GORM

<em>How to fix:</em>
  1. Ensure database operator is connected
  2. Check database configuration`

	return &gn.Error{
		Code: errcode.DBGORMConnectionError,
		Msg:  msg,
		Vars: nil,
		Err:  fmt.Errorf("failed to connect with GORM: %w", err),
	}
}

// CreateSchemaError creates an error for schema
// creation failures. The statement is empty when the failure
// is not tied to one statement.
func CreateSchemaError(statement string, err error) error {
	msg := `Cannot create database schema

<em>Possible causes:</em>
  - Insufficient database permissions
  - Tables of another dataset are in the way

<em>How to fix:</em>
  1. Check database user has CREATE permissions
  2. Use --force to drop existing tables`

	return &gn.Error{
		Code: errcode.DBSchemaCreateError,
		Msg:  msg,
		Vars: nil,
		Err: fmt.Errorf("failed to create schema %q: %w",
			statement, err),
	}
}
