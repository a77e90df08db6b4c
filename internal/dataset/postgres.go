package dataset

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// SourceConfig holds connection details for a database-backed dataset.
type SourceConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// Source loads tabular data from somewhere other than a CSV upload.
type Source interface {
	Connect(config SourceConfig) error
	Close() error
	ListTables() ([]string, error)
	LoadTable(tableName string, limit int) (*Table, error)
}

// PostgresSource implements Source for PostgreSQL.
type PostgresSource struct {
	db *sql.DB
}

func (p *PostgresSource) Connect(config SourceConfig) error {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}

	p.db = db
	return nil
}

func (p *PostgresSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresSource) ListTables() ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name;
	`
	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

// LoadTable fetches up to limit rows of a table and converts them into a
// Table with inferred column types.
func (p *PostgresSource) LoadTable(tableName string, limit int) (*Table, error) {
	// tableName must come from ListTables; callers validate before use.
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", tableName, limit)

	rows, err := p.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := [][]string{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make([]string, len(columns))
		for i, val := range values {
			switch v := val.(type) {
			case nil:
				row[i] = ""
			case []byte:
				row[i] = string(v)
			case float64:
				row[i] = FormatNumber(v)
			case int64:
				row[i] = fmt.Sprintf("%d", v)
			default:
				row[i] = fmt.Sprintf("%v", v)
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	table := NewTable(columns, data)
	coerceNumericCells(table)
	return table, nil
}
