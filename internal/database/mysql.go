package database

import (
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/grandtrade/gta/internal/adapter"
)

const mysqlSchema = `{
  "type": "object",
  "required": ["type", "host", "port", "database"],
  "properties": {
    "type": {"enum": ["mysql", "mariadb"]},
    "env": {"type": "string"},
    "host": {"type": "string", "minLength": 1},
    "port": {"type": "string", "pattern": "^\\s*[0-9]+\\s*$"},
    "database": {"type": "string", "minLength": 1}
  }
}`

type mysqlDialect struct{}

func mysqlDescriptor(opener Opener) adapter.Descriptor[Database] {
	return adapter.Descriptor[Database]{
		Name:           "mysql",
		TypeNames:      []string{"mysql", "mariadb"},
		CredentialKeys: credentialKeys,
		Schema:         mysqlSchema,
		Description:    "MySQL and MariaDB via go-sql-driver/mysql",
		Load: func(in adapter.Input) (Database, error) {
			return loadSQLDatabase(in, mysqlDialect{}, opener)
		},
	}
}

func (mysqlDialect) driverName() string { return "mysql" }

// dsn leaves DBName empty for the maintenance connection.
func (mysqlDialect) dsn(s *sqlDatabase, database, user, password string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.host, strconv.Itoa(s.port))
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (mysqlDialect) existsQuery() string {
	return "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?"
}

func (mysqlDialect) createStatement(name string) string {
	return "CREATE DATABASE " + mysqlIdentifier(name)
}

func (mysqlDialect) dropStatement(name string) string {
	return "DROP DATABASE IF EXISTS " + mysqlIdentifier(name)
}

func mysqlIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
