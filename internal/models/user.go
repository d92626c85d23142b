package models

import (
	"golang.org/x/crypto/bcrypt"
)

// UserType distinguishes program clients from back-office staff
type UserType string

const (
	UserTypeClient UserType = "CLIENT"
	UserTypeAdmin  UserType = "ADMIN"
)

// User represents a program participant. UserNumber is the business
// identifier invoices reference as the client number; point balances are
// always derived from the ledger, never stored on the user row.
type User struct {
	Base
	Username   string   `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email      string   `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Password   string   `gorm:"type:varchar(128);not null" json:"-"`
	FirstName  string   `gorm:"type:varchar(150)" json:"first_name"`
	LastName   string   `gorm:"type:varchar(150)" json:"last_name"`
	UserType   UserType `gorm:"type:varchar(10);default:'CLIENT'" json:"user_type"`
	UserNumber string   `gorm:"type:varchar(20);uniqueIndex;not null" json:"user_number"`
	Phone      string   `gorm:"type:varchar(20)" json:"phone"`
	IsActive   bool     `json:"is_active"`
	IsStaff    bool     `gorm:"default:false" json:"is_staff"`

	Contracts      []UserContract      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Transactions   []PointsTransaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	RewardRequests []RewardRequest     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// SetPassword hashes and stores the given plaintext password
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword compares a plaintext password against the stored hash
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// CanManage reports whether the user may use the manager surface
// (uploads, approvals, reward request decisions).
func (u *User) CanManage() bool {
	return u.IsStaff || u.UserType == UserTypeAdmin
}
