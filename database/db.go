package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/claimdesk/claimdesk/internal/cache"
	"github.com/pkg/errors"

	"github.com/claimdesk/claimdesk/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil} // or Cache: newCache if cache is used
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, errors.Wrap(err, "pinging database")
	}
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS claimdesk`); err != nil {
		return nil, errors.Wrap(err, "creating schema")
	}
	err = createPolicyTable(db)
	if err != nil {
		return nil, err
	}
	err = createClaimTable(db)
	if err != nil {
		return nil, err
	}
	err = createClaimReprocessTable(db)
	if err != nil {
		return nil, err
	}
	err = createPolicyExpirationTable(db)
	if err != nil {
		return nil, err
	}
	err = createAuditEventTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createClaimTable creates a PostgreSQL table for the Claim struct
func createClaimTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS claimdesk.claims (
			id SERIAL PRIMARY KEY,
			claim_id TEXT NOT NULL UNIQUE,
			client_id TEXT,
			policy_id TEXT,
			claim_number TEXT,
			status TEXT NOT NULL,
			amount_submitted NUMERIC,
			amount_approved NUMERIC,
			amount_denied NUMERIC,
			amount_unprocessed NUMERIC,
			deductible_applied NUMERIC,
			copay_applied NUMERIC,
			incident_date TIMESTAMP,
			submitted_date TIMESTAMP,
			settlement_date TIMESTAMP,
			description TEXT,
			care_type TEXT,
			diagnosis_code TEXT,
			diagnosis_description TEXT,
			pending_reason TEXT,
			return_reason TEXT,
			cancellation_reason TEXT,
			settlement_number TEXT,
			settlement_notes TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			meta_data JSONB
		)
	`)
	return err
}

func createClaimReprocessTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS claimdesk.claim_reprocesses (
			id SERIAL PRIMARY KEY,
			reprocess_id TEXT NOT NULL UNIQUE,
			claim_id TEXT NOT NULL REFERENCES claimdesk.claims(claim_id),
			reprocess_date TIMESTAMP NOT NULL,
			reprocess_description TEXT,
			business_days INTEGER,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func createPolicyTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS claimdesk.policies (
			id SERIAL PRIMARY KEY,
			policy_id TEXT NOT NULL UNIQUE,
			client_id TEXT,
			insurer_id TEXT,
			policy_number TEXT,
			status TEXT NOT NULL,
			start_date TIMESTAMP,
			end_date TIMESTAMP,
			premium_amount NUMERIC,
			copay_amount NUMERIC,
			cancellation_reason TEXT,
			cancelled_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			meta_data JSONB
		)
	`)
	return err
}

func createPolicyExpirationTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS claimdesk.policy_expirations (
			id SERIAL PRIMARY KEY,
			expiration_id TEXT NOT NULL UNIQUE,
			policy_id TEXT NOT NULL REFERENCES claimdesk.policies(policy_id),
			expiration_reason TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func createAuditEventTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS claimdesk.audit_events (
			id SERIAL PRIMARY KEY,
			event_id TEXT NOT NULL UNIQUE,
			resource_type TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_role TEXT,
			changes JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_events_resource
		ON claimdesk.audit_events (resource_type, resource_id, created_at)
	`)
	return err
}
