package repository

import (
	"github.com/solacehq/solace/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new account in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves an account by its ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves an account by its email address
func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves changes to an existing account
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Deactivate soft-deactivates an account. Accounts are never hard-deleted.
func (r *userRepository) Deactivate(id uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Update("status", models.STATUS_DISABLED).Error
}

// SetPaymentCustomerID caches the external payment customer id on the account
func (r *userRepository) SetPaymentCustomerID(id uint, customerID string) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).
		Update("payment_customer_id", customerID).Error
}
