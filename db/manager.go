package db

import (
	"context"
	"fmt"

	"mindcare/config"
	"mindcare/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

// ConnectDB подключается к мастеру и репликам и выполняет автомиграцию моделей.
// Вызывается один раз при старте приложения.
func ConnectDB() error {
	if config.AppConfig == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}
	conf := config.AppConfig
	if conf.Databases.Master.Host == "" {
		return fmt.Errorf("master database configuration is missing")
	}

	masterDSN := dsnFromConfig(conf.Databases.Master)
	replicaDialectors := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicaDialectors = append(replicaDialectors, postgres.Open(dsnFromConfig(r)))
	}

	database, err := gorm.Open(postgres.Open(masterDSN), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
			NoLowerCase:   false,
		},
	})
	if err != nil {
		return err
	}

	if len(replicaDialectors) > 0 {
		err = database.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDialectors,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return err
		}
	}

	if err := Migrate(database); err != nil {
		return err
	}

	ORM = database
	return nil
}

// Close закрывает пул соединений при остановке приложения
func Close() error {
	if ORM == nil {
		return nil
	}
	sqlDB, err := ORM.DB()
	if err != nil {
		return err
	}
	ORM = nil
	return sqlDB.Close()
}

// Migrate выполняет автомиграцию всех моделей
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.User{},
		&models.UserTokens{},
		&models.DirectMessage{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupMessage{},
		&models.GroupReadState{},
		&models.GroupInvite{},
		&models.FriendRequest{},
		&models.Friend{},
		&models.Post{},
		&models.Comment{},
		&models.MoodEntry{},
		&models.JournalEntry{},
	)
}

// GetReadOnlyDB возвращает подключение для чтения (реплики)
func GetReadOnlyDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Read)
}

// GetWriteDB возвращает подключение для записи (мастер)
func GetWriteDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Write)
}
