package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"kfinder_dev_v1_202608/internal/repository"
)

// ==================== CleanupTask 记录清理任务 ====================

// CleanupTask 定时清理超过保留期的保存记录
type CleanupTask struct {
	recordRepo    repository.SavedRecordRepository
	retentionDays int
	cron          *cron.Cron
}

// NewCleanupTask 创建记录清理任务
// retentionDays <= 0 表示不清理，Start 会直接跳过
func NewCleanupTask(recordRepo repository.SavedRecordRepository, retentionDays int) *CleanupTask {
	return &CleanupTask{
		recordRepo:    recordRepo,
		retentionDays: retentionDays,
		cron:          cron.New(cron.WithSeconds()),
	}
}

// Start 启动定时任务
func (t *CleanupTask) Start() {
	if t.retentionDays <= 0 {
		log.Println("[CleanupTask] 未配置保留期，清理任务不启动")
		return
	}

	// 定时策略：每天凌晨 3 点执行
	_, err := t.cron.AddFunc("0 0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.execute(ctx)
	})

	if err != nil {
		log.Fatalf("[CleanupTask] 无法启动定时任务: %v", err)
	}

	t.cron.Start()
	log.Printf("[CleanupTask] 记录清理任务已启动 (保留 %d 天)", t.retentionDays)
}

// Stop 停止任务
func (t *CleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	log.Println("[CleanupTask] 已停止")
}

// execute 执行一次清理
func (t *CleanupTask) execute(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -t.retentionDays).UnixMilli()

	deleted, err := t.recordRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[CleanupTask] 清理失败: %v", err)
		return
	}

	if deleted > 0 {
		log.Printf("[CleanupTask] 已清理 %d 条过期记录", deleted)
	}
}
