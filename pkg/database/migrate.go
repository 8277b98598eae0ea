package database

import (
	"fmt"

	"gorm.io/gorm"

	"booktracker/pkg/models"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Book{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := backfillKeys(db); err != nil {
		return fmt.Errorf("failed to backfill lookup keys: %w", err)
	}
	return nil
}

// backfillKeys fills the folded columns of rows written before they existed.
// Two users whose names only differ in case make this fail on the unique
// index and have to be renamed by hand.
func backfillKeys(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Where("username_key IS NULL OR email_key IS NULL").Find(&users).Error; err != nil {
			return err
		}
		for i := range users {
			u := &users[i]
			u.RefreshKeys()
			if err := tx.Model(u).UpdateColumns(map[string]any{
				"username_key": u.UsernameKey,
				"email_key":    u.EmailKey,
			}).Error; err != nil {
				return fmt.Errorf("user %q: %w", u.Username, err)
			}
		}

		var books []models.Book
		if err := tx.Where("title_key IS NULL OR author_key IS NULL OR genre_key IS NULL").Find(&books).Error; err != nil {
			return err
		}
		for i := range books {
			b := &books[i]
			b.RefreshKeys()
			if err := tx.Model(b).UpdateColumns(map[string]any{
				"title_key":  b.TitleKey,
				"author_key": b.AuthorKey,
				"genre_key":  b.GenreKey,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
