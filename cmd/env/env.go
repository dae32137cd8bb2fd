package env

const (
	// Prefix is the prefix of every kursrates environment variable
	Prefix = "KURS_"

	// DBURLSuffix is the suffix of the Postgres DSN variable (KURS_DB_URL)
	DBURLSuffix = "DB_URL"
)
