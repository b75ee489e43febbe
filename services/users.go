package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"mindcare/apperr"
	"mindcare/db"
	"mindcare/models"

	"golang.org/x/crypto/argon2"
	"gorm.io/gorm"
)

// UserService - регистрация, вход и выход. Пароли хранятся как
// argon2id в формате hex(salt)$hex(hash), токены - в таблице user_tokens.
type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

func verifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return hex.EncodeToString(hash) == parts[1]
}

// Register создает пользователя с уникальным никнеймом
func (us *UserService) Register(ctx context.Context, nickname, password, firstName, lastName, city string) (*models.User, error) {
	if nickname == "" || password == "" {
		return nil, apperr.Validationf("nickname and password are required")
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to hash password")
	}

	user := &models.User{
		Nickname:  nickname,
		FirstName: firstName,
		LastName:  lastName,
		Password:  passwordHash,
		City:      city,
	}

	err = db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.User{}).Where("nickname = ?", nickname).Count(&existing).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to check nickname")
		}
		if existing > 0 {
			return apperr.Conflictf("nickname already taken")
		}
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login проверяет пароль и выдает новый токен, старые токены отзываются
func (us *UserService) Login(ctx context.Context, nickname, password string) (string, *models.User, error) {
	if nickname == "" || password == "" {
		return "", nil, apperr.Validationf("nickname and password are required")
	}

	var user models.User
	err := db.GetWriteDB(ctx).Where("nickname = ?", nickname).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, apperr.Forbiddenf("invalid credentials")
	}
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, err, "failed to load user")
	}
	if !verifyPassword(user.Password, password) {
		return "", nil, apperr.Forbiddenf("invalid credentials")
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, apperr.Wrap(apperr.Internal, err, "failed to generate token")
	}
	token := hex.EncodeToString(tokenBytes)

	err = db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.UserTokens{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to revoke old tokens")
		}
		return tx.Create(&models.UserTokens{UserID: user.ID, Token: token}).Error
	})
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

// Logout отзывает все токены пользователя
func (us *UserService) Logout(ctx context.Context, userID int64) error {
	err := db.GetWriteDB(ctx).Where("user_id = ?", userID).Delete(&models.UserTokens{}).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "failed to revoke tokens")
	}
	return nil
}

// ResolveToken возвращает пользователя по токену, 0 если токен неизвестен
func (us *UserService) ResolveToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	var userToken models.UserTokens
	err := db.GetReadOnlyDB(ctx).Where("token = ?", token).First(&userToken).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, err, "failed to resolve token")
	}
	return userToken.UserID, nil
}

// GetUser возвращает публичный профиль
func (us *UserService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load user")
	}
	return &user, nil
}
