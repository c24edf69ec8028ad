package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunStore 管理回测任务的持久化记录。
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(path string) (*RunStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewRunStoreFromDB(db)
}

func NewRunStoreFromDB(db *gorm.DB) (*RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db 不能为空")
	}
	if err := db.AutoMigrate(&RunModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create 写入初始记录，config 以 JSON 保存。
func (s *RunStore) Create(ctx context.Context, id, symbol, timeframe, status string, initialCapital float64, config any) error {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return err
	}
	model := RunModel{
		ID:             id,
		Symbol:         symbol,
		Timeframe:      timeframe,
		Status:         status,
		InitialCapital: initialCapital,
		ConfigJSON:     cfgJSON,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// UpdateStatus 只更新状态与提示。
func (s *RunStore) UpdateStatus(ctx context.Context, id, status, message string) error {
	updates := map[string]any{
		"status":  status,
		"message": message,
	}
	if status == "done" || status == "failed" {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return s.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(updates).Error
}

// RunSummary 是完成时落库的汇总指标。
type RunSummary struct {
	FinalCapital float64
	TotalReturn  float64
	SharpeRatio  float64
	MaxDrawdown  float64
	WinRate      float64
	TotalTrades  int
}

// Complete 落库完整结果与汇总指标，并把状态置为 done。
func (s *RunStore) Complete(ctx context.Context, id string, summary RunSummary, result any) error {
	resJSON, err := json.Marshal(result)
	if err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]any{
		"status":        "done",
		"message":       "",
		"final_capital": summary.FinalCapital,
		"total_return":  summary.TotalReturn,
		"sharpe_ratio":  summary.SharpeRatio,
		"max_drawdown":  summary.MaxDrawdown,
		"win_rate":      summary.WinRate,
		"total_trades":  summary.TotalTrades,
		"result_json":   resJSON,
		"completed_at":  &now,
	}
	return s.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(updates).Error
}

// Get 返回单条记录。
func (s *RunStore) Get(ctx context.Context, id string) (RunModel, error) {
	var model RunModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	return model, err
}

// List 按创建时间倒序返回最近的记录。
func (s *RunStore) List(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []RunModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}
