package services

import (
	"fmt"
	"testing"
	"time"

	"mindcare/db"
	"mindcare/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB поднимает SQLite в памяти и подменяет глобальный ORM
func setupTestDB(t *testing.T) {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	db.ORM = database
}

// createTestUser создает пользователя со сгенерированным профилем
func createTestUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		Nickname:  fmt.Sprintf("%s_%d", gofakeit.Username(), time.Now().UnixNano()),
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Password:  "testpassword",
		City:      gofakeit.City(),
	}
	if err := db.ORM.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}
