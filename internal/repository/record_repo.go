package repository

import (
	"context"

	"gorm.io/gorm"

	"kfinder_dev_v1_202608/internal/model"
)

// ==================== 仓储接口 ====================

// SavedRecordRepository 已保存商品仓储接口
type SavedRecordRepository interface {
	Create(ctx context.Context, record *model.SavedRecord) error
	GetByKey(ctx context.Context, saveKey string) (*model.SavedRecord, error)
	// List 按保存时间倒序，最新的在前
	List(ctx context.Context, offset, limit int) ([]model.SavedRecord, error)
	ListAll(ctx context.Context) ([]model.SavedRecord, error)
	Count(ctx context.Context) (int64, error)
	DeleteByKey(ctx context.Context, saveKey string) error
	DeleteAll(ctx context.Context) (int64, error)
	// DeleteOlderThan 按保存时间清理，cutoffMillis 之前的全部删除
	DeleteOlderThan(ctx context.Context, cutoffMillis int64) (int64, error)
}

// ==================== 仓储实现 ====================

type savedRecordRepo struct {
	db *gorm.DB
}

// NewSavedRecordRepository 创建已保存商品仓储
func NewSavedRecordRepository(db *gorm.DB) SavedRecordRepository {
	return &savedRecordRepo{db: db}
}

func (r *savedRecordRepo) Create(ctx context.Context, record *model.SavedRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *savedRecordRepo) GetByKey(ctx context.Context, saveKey string) (*model.SavedRecord, error) {
	var record model.SavedRecord
	if err := r.db.WithContext(ctx).Where("save_key = ?", saveKey).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *savedRecordRepo) List(ctx context.Context, offset, limit int) ([]model.SavedRecord, error) {
	var records []model.SavedRecord
	query := r.db.WithContext(ctx).Order("saved_at DESC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

func (r *savedRecordRepo) ListAll(ctx context.Context) ([]model.SavedRecord, error) {
	var records []model.SavedRecord
	err := r.db.WithContext(ctx).Order("saved_at DESC").Find(&records).Error
	return records, err
}

func (r *savedRecordRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SavedRecord{}).Count(&count).Error
	return count, err
}

func (r *savedRecordRepo) DeleteByKey(ctx context.Context, saveKey string) error {
	result := r.db.WithContext(ctx).Where("save_key = ?", saveKey).Delete(&model.SavedRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *savedRecordRepo) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&model.SavedRecord{})
	return result.RowsAffected, result.Error
}

func (r *savedRecordRepo) DeleteOlderThan(ctx context.Context, cutoffMillis int64) (int64, error) {
	result := r.db.WithContext(ctx).Where("saved_at < ?", cutoffMillis).Delete(&model.SavedRecord{})
	return result.RowsAffected, result.Error
}
