package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	SeriesGroup     SeriesGroupRepository
	SeriesVersion   SeriesVersionRepository
	SeriesInstance  SeriesInstanceRepository
	SeriesChangeLog SeriesChangeLogRepository
	EntityConfig    EntityConfigRepository
	Entity          EntityRepository

	// Tx 事务执行器：创建/拆分等多步变更在一个事务里全有或全无
	Tx TxRunner
}

// TxRunner 事务执行器接口
// fn 内通过传入的事务内聚合访问各 Repository；fn 返回错误时整体回滚
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := build(db)
	r.Tx = &gormTxRunner{db: db}
	return r
}

// build 基于给定 DB 句柄组装聚合（事务内复用）
func build(db *gorm.DB) *Repository {
	return &Repository{
		SeriesGroup:     NewSeriesGroupRepo(db),
		SeriesVersion:   NewSeriesVersionRepo(db),
		SeriesInstance:  NewSeriesInstanceRepo(db),
		SeriesChangeLog: NewSeriesChangeLogRepo(db),
		EntityConfig:    NewEntityConfigRepo(db),
		Entity:          NewEntityRepo(db),
	}
}

type gormTxRunner struct {
	db *gorm.DB
}

func (t *gormTxRunner) RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := build(tx)
		// 事务内再开事务没有意义，嵌套调用直接复用当前事务
		txRepo.Tx = &nestedTxRunner{repo: txRepo}
		return fn(txRepo)
	})
}

type nestedTxRunner struct {
	repo *Repository
}

func (t *nestedTxRunner) RunInTx(_ context.Context, fn func(txRepo *Repository) error) error {
	return fn(t.repo)
}
