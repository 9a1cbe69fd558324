package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole represents the role of a user
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// UserStatus represents the account status of a user
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBanned   UserStatus = "banned"
)

// User represents a platform account
type User struct {
	ID          uint       `gorm:"column:id;primaryKey" json:"id"`
	Username    string     `gorm:"column:username;uniqueIndex;size:50;not null" json:"username"`
	Email       string     `gorm:"column:email;uniqueIndex;size:100;not null" json:"email"`
	Password    string     `gorm:"column:password_hash;size:255;not null" json:"-"`
	Avatar      string     `gorm:"column:avatar;size:500" json:"avatar,omitempty"`
	Role        UserRole   `gorm:"column:role;size:20;default:user" json:"role"`
	Status      UserStatus `gorm:"column:status;size:20;default:active" json:"status"`
	LastLoginAt *time.Time `gorm:"column:last_login_at" json:"last_login_at"`

	// 2FA fields
	TwoFactorEnabled bool   `gorm:"column:two_factor_enabled;default:false" json:"two_factor_enabled"`
	TwoFactorSecret  string `gorm:"column:two_factor_secret;size:255" json:"-"`

	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// OrderStatus represents the payment status of an order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// Order is a purchase record. Payment processing is not implemented;
// the model exists so the schema matches the product plan.
type Order struct {
	ID            uint        `gorm:"column:id;primaryKey" json:"id"`
	OrderNo       string      `gorm:"column:order_no;size:50;uniqueIndex;not null" json:"order_no"`
	UserID        uint        `gorm:"column:user_id;not null;index" json:"user_id"`
	ProductType   string      `gorm:"column:product_type;size:50;not null" json:"product_type"`
	Amount        float64     `gorm:"column:amount;type:decimal(10,2);not null" json:"amount"`
	Status        OrderStatus `gorm:"column:status;size:20;default:pending;index" json:"status"`
	PayMethod     string      `gorm:"column:pay_method;size:50" json:"pay_method,omitempty"`
	TransactionID string      `gorm:"column:transaction_id;size:100" json:"transaction_id,omitempty"`
	PaidAt        *time.Time  `gorm:"column:paid_at" json:"paid_at"`
	ExpiredAt     *time.Time  `gorm:"column:expired_at" json:"expired_at"`
	CreatedAt     time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Order) TableName() string {
	return "orders"
}
