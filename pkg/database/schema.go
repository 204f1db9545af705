package database

import (
	"context"
	"fmt"
)

// CreateSchema creates the database schema for the tenant directory and
// the access grant store
func (db *DB) CreateSchema(ctx context.Context) error {
	db.logger.Info("Creating database schema...")

	if err := db.createExtensions(ctx); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createOrganizationsTable,
		createUsersTable,
		createPatientAccessGrantsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createOrganizationsIndexes,
		createUsersIndexes,
		createPatientAccessGrantsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	db.logger.Info("Database schema created successfully")
	return nil
}

// createExtensions creates required PostgreSQL extensions
func (db *DB) createExtensions(ctx context.Context) error {
	extensions := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}

	for _, ext := range extensions {
		if _, err := db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("failed to create extension: %w", err)
		}
	}

	return nil
}

const createOrganizationsTable = `
CREATE TABLE IF NOT EXISTS organizations (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	name VARCHAR(255) NOT NULL,
	subdomain VARCHAR(63) NOT NULL UNIQUE,
	custom_domain VARCHAR(255) UNIQUE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	settings JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	organization_id UUID NOT NULL REFERENCES organizations(id),
	email VARCHAR(255) NOT NULL,
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	role VARCHAR(32) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (organization_id, email)
);`

const createPatientAccessGrantsTable = `
CREATE TABLE IF NOT EXISTS patient_access_grants (
	id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
	patient_id UUID NOT NULL REFERENCES users(id),
	patient_organization_id UUID NOT NULL REFERENCES organizations(id),
	requesting_doctor_id UUID NOT NULL REFERENCES users(id),
	doctor_organization_id UUID NOT NULL REFERENCES organizations(id),
	status VARCHAR(16) NOT NULL DEFAULT 'pending',
	reason TEXT NOT NULL,
	requested_duration VARCHAR(16) NOT NULL,
	urgency_level VARCHAR(16) NOT NULL DEFAULT 'normal',
	approval_token VARCHAR(128),
	rejection_token VARCHAR(128),
	granted_at TIMESTAMPTZ,
	expires_at TIMESTAMPTZ,
	revoked_at TIMESTAMPTZ,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed_at TIMESTAMPTZ,
	requester_ip VARCHAR(45),
	approver_ip VARCHAR(45),
	email_sent_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (patient_organization_id <> doctor_organization_id)
);`

const createOrganizationsIndexes = `
CREATE INDEX IF NOT EXISTS idx_organizations_subdomain ON organizations(subdomain);
CREATE INDEX IF NOT EXISTS idx_organizations_custom_domain ON organizations(custom_domain);
CREATE INDEX IF NOT EXISTS idx_organizations_active_created ON organizations(is_active, created_at);`

const createUsersIndexes = `
CREATE INDEX IF NOT EXISTS idx_users_organization ON users(organization_id);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);`

const createPatientAccessGrantsIndexes = `
CREATE INDEX IF NOT EXISTS idx_grants_doctor ON patient_access_grants(requesting_doctor_id);
CREATE INDEX IF NOT EXISTS idx_grants_patient ON patient_access_grants(patient_id);
CREATE INDEX IF NOT EXISTS idx_grants_doctor_patient_status ON patient_access_grants(requesting_doctor_id, patient_id, status);
CREATE INDEX IF NOT EXISTS idx_grants_status_expires ON patient_access_grants(status, expires_at);`
