package auth

import (
	"errors"
	"strings"

	"silvess-backend/internal/config"
	"silvess-backend/internal/httpx"
	"silvess-backend/internal/metrics"
	"silvess-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type UserResponse struct {
	ID    uint            `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// POST /api/auth/register
// The first account becomes admin, every later one is a regular user.
func RegisterHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}

		hash, err := HashPassword(body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		user := models.User{
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: hash,
			Role:         models.RoleUser,
			Active:       true,
		}

		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			var taken int64
			if err := tx.Model(&models.User{}).Where("email = ?", body.Email).Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return fiber.NewError(fiber.StatusBadRequest, "email already registered")
			}

			var count int64
			if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				user.Role = models.RoleAdmin
			}
			return tx.Create(&user).Error
		})
		if err != nil {
			return err
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTExpiry, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// POST /api/auth/login
func LoginHandler(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := db.WithContext(c.UserContext()).Where("email = ?", body.Email).First(&user).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			metrics.RecordLogin("rejected")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}

		if !CheckPassword(user.PasswordHash, body.Password) {
			metrics.RecordLogin("rejected")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		if !user.Active {
			metrics.RecordLogin("inactive")
			return fiber.NewError(fiber.StatusUnauthorized, "user is inactive")
		}

		token, err := GenerateToken(cfg.JWTSecret, cfg.JWTExpiry, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create token")
		}

		metrics.RecordLogin("success")
		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := Current(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).
			Where("id = ? AND active = ?", p.UserID, true).
			First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "user not found")
			}
			return err
		}

		return c.JSON(fiber.Map{
			"id":         user.ID,
			"name":       user.Name,
			"email":      user.Email,
			"role":       user.Role,
			"created_at": user.CreatedAt,
		})
	}
}

// POST /api/auth/change-password
func ChangePasswordHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := Current(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "not authenticated")
		}

		var body ChangePasswordRequest
		if err := httpx.Bind(c, &body); err != nil {
			return err
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, p.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "user not found")
			}
			return err
		}

		if !CheckPassword(user.PasswordHash, body.CurrentPassword) {
			return fiber.NewError(fiber.StatusUnauthorized, "current password is incorrect")
		}

		hash, err := HashPassword(body.NewPassword)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not hash password")
		}

		if err := db.WithContext(c.UserContext()).Model(&user).Update("password_hash", hash).Error; err != nil {
			return err
		}

		return c.JSON(fiber.Map{"message": "password changed"})
	}
}
