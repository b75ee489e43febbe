package services

import (
	"context"
	"errors"
	"time"

	"mindcare/apperr"
	"mindcare/db"
	"mindcare/models"

	"gorm.io/gorm"
)

// WellbeingService - отметки настроения и записи дневника.
// Видны и изменяемы только владельцу.
type WellbeingService struct{}

func NewWellbeingService() *WellbeingService {
	return &WellbeingService{}
}

// CreateMoodEntry сохраняет отметку настроения по шкале 1..10
func (ws *WellbeingService) CreateMoodEntry(ctx context.Context, userID int64, score int, note string) (*models.MoodEntry, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}
	if score < 1 || score > 10 {
		return nil, apperr.Validationf("score must be between 1 and 10")
	}

	entry := &models.MoodEntry{
		UserID:    userID,
		Score:     score,
		Note:      note,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(entry).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to create mood entry")
	}
	return entry, nil
}

// GetMoodEntries возвращает отметки пользователя постранично, новые первыми
func (ws *WellbeingService) GetMoodEntries(ctx context.Context, userID int64, page, pageSize int) ([]models.MoodEntry, error) {
	page, pageSize = normalizePage(page, pageSize)
	var entries []models.MoodEntry
	err := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load mood entries")
	}
	return entries, nil
}

// DeleteMoodEntry удаляет отметку, только владелец
func (ws *WellbeingService) DeleteMoodEntry(ctx context.Context, entryID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.MoodEntry
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("mood entry not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load mood entry")
		}
		if entry.UserID != userID {
			return apperr.Forbiddenf("only the owner can delete a mood entry")
		}
		return tx.Delete(&entry).Error
	})
}

// CreateJournalEntry сохраняет запись дневника
func (ws *WellbeingService) CreateJournalEntry(ctx context.Context, userID int64, title, body string) (*models.JournalEntry, error) {
	if userID <= 0 {
		return nil, apperr.Validationf("user id is required")
	}
	if body == "" {
		return nil, apperr.Validationf("body is required")
	}

	entry := &models.JournalEntry{
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.GetWriteDB(ctx).Create(entry).Error; err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to create journal entry")
	}
	return entry, nil
}

// UpdateJournalEntry меняет запись, только владелец
func (ws *WellbeingService) UpdateJournalEntry(ctx context.Context, entryID, userID int64, title, body string) (*models.JournalEntry, error) {
	if body == "" {
		return nil, apperr.Validationf("body is required")
	}

	var entry models.JournalEntry
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("journal entry not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load journal entry")
		}
		if entry.UserID != userID {
			return apperr.Forbiddenf("only the owner can update a journal entry")
		}
		entry.Title = title
		entry.Body = body
		entry.UpdatedAt = time.Now()
		return tx.Save(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteJournalEntry удаляет запись, только владелец
func (ws *WellbeingService) DeleteJournalEntry(ctx context.Context, entryID, userID int64) error {
	return db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.JournalEntry
		err := tx.First(&entry, entryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("journal entry not found")
		}
		if err != nil {
			return apperr.Wrap(apperr.Internal, err, "failed to load journal entry")
		}
		if entry.UserID != userID {
			return apperr.Forbiddenf("only the owner can delete a journal entry")
		}
		return tx.Delete(&entry).Error
	})
}

// GetJournalEntries возвращает записи пользователя постранично
func (ws *WellbeingService) GetJournalEntries(ctx context.Context, userID int64, page, pageSize int) ([]models.JournalEntry, error) {
	page, pageSize = normalizePage(page, pageSize)
	var entries []models.JournalEntry
	err := db.GetReadOnlyDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load journal entries")
	}
	return entries, nil
}
