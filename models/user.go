package models

import (
	"context"
	"errors"
	"time"

	"github.com/dragontuck/unionhall-compliance-sub001/config"
	"github.com/dragontuck/unionhall-compliance-sub001/utils"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleReviewer UserRole = "R"
)

func (r UserRole) DisplayName() string {
	if r == UserRoleAdmin {
		return "Admin"
	}
	return "Reviewer"
}

// User is a dashboard reviewer account.
type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Username  string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     *string   `gorm:"size:100" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	IsActive  *bool     `gorm:"not null" json:"is_active"`
	Role      UserRole  `gorm:"type:enum('A', 'R');default:R" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type SigninInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SigninResult struct {
	Token    string `json:"token"`
	UserId   int    `json:"user_id"`
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

var errInvalidCredentials = errors.New("invalid username or password")

// Signin verifies the credentials and returns a signed JWT.
func Signin(ctx context.Context, input *SigninInput) (*SigninResult, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("username = ?", input.Username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, errInvalidCredentials
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return nil, errInvalidCredentials
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &SigninResult{
		Token:    token,
		UserId:   user.ID,
		UserName: user.Name,
		Role:     user.Role.DisplayName(),
	}, nil
}

func GetUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}
