package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/convert"
)

const (
	postgresMaintenanceDB = "postgres"
	defaultSSLMode        = "disable"
)

const postgresSchema = `{
  "type": "object",
  "required": ["type", "host", "port", "database"],
  "properties": {
    "type": {"enum": ["postgres", "postgresql", "pg"]},
    "env": {"type": "string"},
    "host": {"type": "string", "minLength": 1},
    "port": {"type": "string", "pattern": "^\\s*[0-9]+\\s*$"},
    "database": {"type": "string", "minLength": 1},
    "sslmode": {"enum": ["disable", "require", "verify-ca", "verify-full"]}
  }
}`

type postgresDialect struct{}

func postgresDescriptor(opener Opener) adapter.Descriptor[Database] {
	return adapter.Descriptor[Database]{
		Name:           "postgres",
		TypeNames:      []string{"postgres", "postgresql", "pg"},
		CredentialKeys: credentialKeys,
		Schema:         postgresSchema,
		Description:    "PostgreSQL via lib/pq",
		Load: func(in adapter.Input) (Database, error) {
			db, err := loadSQLDatabase(in, postgresDialect{}, opener)
			if err != nil {
				return nil, err
			}
			db.sslmode = convert.SectionStringOr(in.Section, "sslmode", defaultSSLMode)
			return db, nil
		},
	}
}

func (postgresDialect) driverName() string { return "postgres" }

func (postgresDialect) dsn(s *sqlDatabase, database, user, password string) string {
	if database == "" {
		database = postgresMaintenanceDB
	}
	parts := []string{
		"host=" + pgValue(s.host),
		"port=" + strconv.Itoa(s.port),
		"dbname=" + pgValue(database),
		"user=" + pgValue(user),
	}
	if password != "" {
		parts = append(parts, "password="+pgValue(password))
	}
	parts = append(parts, "sslmode="+pgValue(s.sslmode))
	return strings.Join(parts, " ")
}

// pgValue quotes a keyword/value connection string value.
func pgValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return fmt.Sprintf("'%s'", v)
}

func (postgresDialect) existsQuery() string {
	return "SELECT 1 FROM pg_database WHERE datname = $1"
}

func (postgresDialect) createStatement(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

func (postgresDialect) dropStatement(name string) string {
	return "DROP DATABASE IF EXISTS " + pq.QuoteIdentifier(name)
}
