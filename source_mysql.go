package main

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

type mysqlSource struct{}

func (m *mysqlSource) Name() string { return "MySQL" }

func (m *mysqlSource) OpenDB(dsn string) (*sql.DB, error) {
	readDSN, err := mysqlDSNWithReadOptions(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", readDSN)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func (m *mysqlSource) QuoteIdentifier(name string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(name, "`", "``"))
}

func (m *mysqlSource) TypeDescriptor(dbTypeName string) SourceType {
	switch strings.ToUpper(dbTypeName) {
	case "VARCHAR", "CHAR":
		return TypeString
	case "DATE":
		return TypeDate
	case "TIME":
		return TypeTime
	case "DATETIME", "TIMESTAMP":
		return TypeDate
	case "TINYINT", "BIT", "BOOL", "BOOLEAN":
		return TypeBoolean
	case "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		return TypeInt
	case "FLOAT", "DOUBLE":
		return TypeFloat
	case "DECIMAL":
		return TypeDecimal
	default:
		// TEXT, BLOB, JSON, ENUM, SET and anything exotic land in
		// unbounded text, matching the original catch-all.
		return TypeText
	}
}

// mysqlDSNWithReadOptions rewrites a MySQL DSN with the options the
// reader relies on: parsed time values, client-side interpolation, UTC.
func mysqlDSNWithReadOptions(baseDSN string) (string, error) {
	cfg, err := mysql.ParseDSN(baseDSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.InterpolateParams = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
