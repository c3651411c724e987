package models

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Platform operators may list users across tenants through the audited
	// unscoped path. Nothing else keys off this flag.
	IsPlatformAdmin bool `gorm:"default:false" json:"-"`

	// Relationships
	Memberships []TenantMembership `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
