package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	UID          string    `gorm:"primaryKey;size:36"       json:"uid"`
	Email        string    `gorm:"uniqueIndex;not null"     json:"email"`
	Username     string    `gorm:"not null"                 json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	IsVerified   bool      `gorm:"not null;default:false"   json:"is_verified"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UID == "" {
		u.UID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

type Book struct {
	UID           string    `gorm:"primaryKey;size:36"  json:"uid"`
	Title         string    `gorm:"not null"            json:"title"`
	Author        string    `gorm:"not null"            json:"author"`
	Publisher     string    `json:"publisher"`
	PublishedDate string    `json:"published_date"`
	PageCount     int       `json:"page_count"`
	Language      string    `json:"language"`
	UserUID       string    `gorm:"index;size:36"       json:"user_uid"`
	Tags          []Tag     `gorm:"many2many:book_tags" json:"tags,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.UID == "" {
		b.UID = uuid.NewString()
	}
	return nil
}

type Review struct {
	UID        string    `gorm:"primaryKey;size:36"               json:"uid"`
	Rating     int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	ReviewText string    `gorm:"not null"                         json:"review_text"`
	UserUID    string    `gorm:"index;size:36;not null"           json:"user_uid"`
	BookUID    string    `gorm:"index;size:36;not null"           json:"book_uid"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.UID == "" {
		r.UID = uuid.NewString()
	}
	return nil
}

type Tag struct {
	UID       string    `gorm:"primaryKey;size:36"      json:"uid"`
	Name      string    `gorm:"uniqueIndex;not null"    json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.UID == "" {
		t.UID = uuid.NewString()
	}
	return nil
}
