package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/domain/identity"
	"github.com/staffhub/backend/internal/domain/shared"
)

// TenantModel is the persistence model for the Tenant domain entity.
type TenantModel struct {
	AggregateModel
	Name               string                `gorm:"type:varchar(200);not null"`
	Domain             string                `gorm:"type:varchar(200);uniqueIndex"`
	Status             identity.TenantStatus `gorm:"type:varchar(20);not null;default:'provisioning';index"`
	AdminEmail         string                `gorm:"type:varchar(200);not null"`
	AdminName          string                `gorm:"type:varchar(100)"`
	IdempotencyToken   *string               `gorm:"type:varchar(100);uniqueIndex"`
	ProvisionedAt      *time.Time
	FailureReason      *string `gorm:"type:text"`
	ProvisionAttempts  int     `gorm:"not null;default:0"`
	SubscriptionActive bool    `gorm:"not null;default:false"`
	SuspensionReason   *string `gorm:"type:text"`
	GracePeriodEndsAt  *time.Time
	ExternalBillingRef string     `gorm:"type:varchar(200);index"`
	DeletedAt          *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenantModel) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Name:               m.Name,
		Domain:             m.Domain,
		Status:             m.Status,
		AdminEmail:         m.AdminEmail,
		AdminName:          m.AdminName,
		IdempotencyToken:   m.IdempotencyToken,
		ProvisionedAt:      m.ProvisionedAt,
		FailureReason:      m.FailureReason,
		ProvisionAttempts:  m.ProvisionAttempts,
		SubscriptionActive: m.SubscriptionActive,
		SuspensionReason:   m.SuspensionReason,
		GracePeriodEndsAt:  m.GracePeriodEndsAt,
		ExternalBillingRef: m.ExternalBillingRef,
		DeletedAt:          m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain Tenant entity.
func (m *TenantModel) FromDomain(t *identity.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Name = t.Name
	m.Domain = t.Domain
	m.Status = t.Status
	m.AdminEmail = t.AdminEmail
	m.AdminName = t.AdminName
	m.IdempotencyToken = t.IdempotencyToken
	m.ProvisionedAt = t.ProvisionedAt
	m.FailureReason = t.FailureReason
	m.ProvisionAttempts = t.ProvisionAttempts
	m.SubscriptionActive = t.SubscriptionActive
	m.SuspensionReason = t.SuspensionReason
	m.GracePeriodEndsAt = t.GracePeriodEndsAt
	m.ExternalBillingRef = t.ExternalBillingRef
	m.DeletedAt = t.DeletedAt
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant entity.
func TenantModelFromDomain(t *identity.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	TenantAggregateModel
	Email               string              `gorm:"type:varchar(200);not null;index"`
	DisplayName         string              `gorm:"type:varchar(200)"`
	PasswordHash        string              `gorm:"type:varchar(255)"`
	IsAdmin             bool                `gorm:"not null;default:false"`
	Status              identity.UserStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	SetupTokenHash      string              `gorm:"type:varchar(255)"`
	SetupTokenExpiresAt *time.Time
	LastLoginAt         *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		Email:               m.Email,
		DisplayName:         m.DisplayName,
		PasswordHash:        m.PasswordHash,
		IsAdmin:             m.IsAdmin,
		Status:              m.Status,
		SetupTokenHash:      m.SetupTokenHash,
		SetupTokenExpiresAt: m.SetupTokenExpiresAt,
		LastLoginAt:         m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainTenantAggregateRoot(u.TenantAggregateRoot)
	m.Email = u.Email
	m.DisplayName = u.DisplayName
	m.PasswordHash = u.PasswordHash
	m.IsAdmin = u.IsAdmin
	m.Status = u.Status
	m.SetupTokenHash = u.SetupTokenHash
	m.SetupTokenExpiresAt = u.SetupTokenExpiresAt
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// OrgUnitModel is the persistence model for the OrgUnit domain entity.
type OrgUnitModel struct {
	TenantAggregateModel
	Code     string     `gorm:"type:varchar(50);not null;index"`
	Name     string     `gorm:"type:varchar(200);not null"`
	ParentID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (OrgUnitModel) TableName() string {
	return "org_units"
}

// ToDomain converts the persistence model to a domain OrgUnit entity.
func (m *OrgUnitModel) ToDomain() *identity.OrgUnit {
	return &identity.OrgUnit{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		Code:     m.Code,
		Name:     m.Name,
		ParentID: m.ParentID,
	}
}

// FromDomain populates the persistence model from a domain OrgUnit entity.
func (m *OrgUnitModel) FromDomain(o *identity.OrgUnit) {
	m.FromDomainTenantAggregateRoot(o.TenantAggregateRoot)
	m.Code = o.Code
	m.Name = o.Name
	m.ParentID = o.ParentID
}

// OrgUnitModelFromDomain creates a new persistence model from a domain OrgUnit entity.
func OrgUnitModelFromDomain(o *identity.OrgUnit) *OrgUnitModel {
	m := &OrgUnitModel{}
	m.FromDomain(o)
	return m
}
