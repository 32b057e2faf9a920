package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/velmark/soundwave/internal/models"
)

type SongRepo struct {
	DB *gorm.DB
}

func (r *SongRepo) Create(ctx context.Context, song *models.Song) error {
	return r.DB.WithContext(ctx).Create(song).Error
}

func (r *SongRepo) GetByID(ctx context.Context, id uint) (*models.Song, error) {
	var song models.Song
	if err := r.DB.WithContext(ctx).Preload("User").First(&song, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &song, nil
}

// GetAll filters with substring matches; both filters are ANDed when present.
func (r *SongRepo) GetAll(ctx context.Context, name, artist string) ([]models.Song, error) {
	q := r.DB.WithContext(ctx).Model(&models.Song{})
	if name != "" {
		q = q.Where("name LIKE ?", "%"+name+"%")
	}
	if artist != "" {
		q = q.Where("artist LIKE ?", "%"+artist+"%")
	}

	var songs []models.Song
	if err := q.Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

func (r *SongRepo) Save(ctx context.Context, song *models.Song) error {
	return r.DB.WithContext(ctx).Save(song).Error
}

func (r *SongRepo) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Song{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
