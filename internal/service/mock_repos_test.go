package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/civic-os/series-backend/internal/model"
	"github.com/civic-os/series-backend/internal/repository"
	"github.com/civic-os/series-backend/internal/timerange"
)

// ── Mock SeriesGroupRepository ──

type mockSeriesGroupRepo struct {
	groups map[string]*model.SeriesGroup
}

func newMockSeriesGroupRepo() *mockSeriesGroupRepo {
	return &mockSeriesGroupRepo{groups: make(map[string]*model.SeriesGroup)}
}

func (m *mockSeriesGroupRepo) Create(_ context.Context, group *model.SeriesGroup) error {
	if group.GroupID == "" {
		group.GroupID = fmt.Sprintf("grp-%d", len(m.groups)+1)
	}
	group.CreatedAt = time.Now()
	group.UpdatedAt = time.Now()
	m.groups[group.GroupID] = group
	return nil
}

func (m *mockSeriesGroupRepo) GetByID(_ context.Context, id string) (*model.SeriesGroup, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeriesGroupRepo) List(_ context.Context, entityTable string, offset, limit int) ([]model.SeriesGroup, int64, error) {
	var result []model.SeriesGroup
	for _, g := range m.groups {
		if entityTable == "" || g.EntityTable == entityTable {
			result = append(result, *g)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockSeriesGroupRepo) Update(_ context.Context, group *model.SeriesGroup) error {
	m.groups[group.GroupID] = group
	return nil
}

func (m *mockSeriesGroupRepo) Delete(_ context.Context, id string) error {
	delete(m.groups, id)
	return nil
}

// ── Mock SeriesVersionRepository ──

type mockSeriesVersionRepo struct {
	versions map[string]*model.SeriesVersion
}

func newMockSeriesVersionRepo() *mockSeriesVersionRepo {
	return &mockSeriesVersionRepo{versions: make(map[string]*model.SeriesVersion)}
}

func (m *mockSeriesVersionRepo) Create(_ context.Context, version *model.SeriesVersion) error {
	for _, v := range m.versions {
		if v.GroupID == version.GroupID && v.TerminatedAt == nil {
			return repository.ErrCurrentVersionExists
		}
	}
	if version.SeriesID == "" {
		version.SeriesID = fmt.Sprintf("ver-%d", len(m.versions)+1)
	}
	m.versions[version.SeriesID] = version
	return nil
}

func (m *mockSeriesVersionRepo) GetByID(_ context.Context, seriesID string) (*model.SeriesVersion, error) {
	if v, ok := m.versions[seriesID]; ok {
		return v, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeriesVersionRepo) GetCurrent(_ context.Context, groupID string) (*model.SeriesVersion, error) {
	for _, v := range m.versions {
		if v.GroupID == groupID && v.TerminatedAt == nil {
			return v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeriesVersionRepo) ListByGroup(_ context.Context, groupID string) ([]model.SeriesVersion, error) {
	var result []model.SeriesVersion
	for _, v := range m.versions {
		if v.GroupID == groupID {
			result = append(result, *v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Dtstart.Before(result[j].Dtstart) })
	return result, nil
}

func (m *mockSeriesVersionRepo) Terminate(_ context.Context, seriesID string, at time.Time) error {
	v, ok := m.versions[seriesID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v.TerminatedAt != nil {
		return repository.ErrVersionAlreadyTerminated
	}
	if at.Before(v.Dtstart) {
		return repository.ErrTerminateBeforeStart
	}
	terminated := at.UTC()
	v.TerminatedAt = &terminated
	return nil
}

func (m *mockSeriesVersionRepo) UpdateTemplate(_ context.Context, seriesID string, template map[string]interface{}) error {
	v, ok := m.versions[seriesID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	v.EntityTemplate = datatypes.JSONMap(template)
	return nil
}

// ── Mock SeriesInstanceRepository ──

type mockSeriesInstanceRepo struct {
	instances map[string]*model.SeriesInstance
	seq       int
}

func newMockSeriesInstanceRepo() *mockSeriesInstanceRepo {
	return &mockSeriesInstanceRepo{instances: make(map[string]*model.SeriesInstance)}
}

func (m *mockSeriesInstanceRepo) Create(_ context.Context, instance *model.SeriesInstance) error {
	if instance.InstanceID == "" {
		m.seq++
		instance.InstanceID = fmt.Sprintf("inst-%d", m.seq)
	}
	cp := *instance
	m.instances[instance.InstanceID] = &cp
	return nil
}

func (m *mockSeriesInstanceRepo) BatchCreate(ctx context.Context, instances []model.SeriesInstance) error {
	for i := range instances {
		if err := m.Create(ctx, &instances[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSeriesInstanceRepo) GetByID(_ context.Context, id string) (*model.SeriesInstance, error) {
	if inst, ok := m.instances[id]; ok {
		return inst, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeriesInstanceRepo) GetByEntity(_ context.Context, entityTable, entityID string) (*model.SeriesInstance, error) {
	for _, inst := range m.instances {
		if inst.EntityTable == entityTable && inst.EntityID != nil && *inst.EntityID == entityID {
			return inst, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeriesInstanceRepo) ListByGroup(_ context.Context, groupID string, from, to *time.Time, offset, limit int) ([]model.SeriesInstance, int64, error) {
	var result []model.SeriesInstance
	for _, inst := range m.instances {
		if inst.GroupID != groupID {
			continue
		}
		if from != nil && inst.OccurrenceDate.Before(*from) {
			continue
		}
		if to != nil && !inst.OccurrenceDate.Before(*to) {
			continue
		}
		result = append(result, *inst)
	}
	sortInstances(result)
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit >= 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (m *mockSeriesInstanceRepo) ListBySeries(_ context.Context, seriesID string) ([]model.SeriesInstance, error) {
	var result []model.SeriesInstance
	for _, inst := range m.instances {
		if inst.SeriesID == seriesID {
			result = append(result, *inst)
		}
	}
	sortInstances(result)
	return result, nil
}

func (m *mockSeriesInstanceRepo) ListBySeriesFrom(_ context.Context, seriesID string, from time.Time) ([]model.SeriesInstance, error) {
	var result []model.SeriesInstance
	for _, inst := range m.instances {
		if inst.SeriesID == seriesID && !inst.OccurrenceDate.Before(from) {
			result = append(result, *inst)
		}
	}
	sortInstances(result)
	return result, nil
}

func (m *mockSeriesInstanceRepo) Update(_ context.Context, instance *model.SeriesInstance) error {
	if _, ok := m.instances[instance.InstanceID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *instance
	m.instances[instance.InstanceID] = &cp
	return nil
}

func (m *mockSeriesInstanceRepo) DeleteBySeriesFrom(_ context.Context, seriesID string, from time.Time) (int64, error) {
	var removed int64
	for id, inst := range m.instances {
		if inst.SeriesID == seriesID && !inst.OccurrenceDate.Before(from) {
			delete(m.instances, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockSeriesInstanceRepo) CountByGroup(_ context.Context, groupID string) (int64, error) {
	var count int64
	for _, inst := range m.instances {
		if inst.GroupID == groupID {
			count++
		}
	}
	return count, nil
}

func sortInstances(result []model.SeriesInstance) {
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurrenceDate.Before(result[j].OccurrenceDate)
	})
}

// ── Mock SeriesChangeLogRepository ──

type mockChangeLogRepo struct {
	logs []model.SeriesChangeLog
}

func newMockChangeLogRepo() *mockChangeLogRepo {
	return &mockChangeLogRepo{}
}

func (m *mockChangeLogRepo) Create(_ context.Context, log *model.SeriesChangeLog) error {
	log.CreatedAt = time.Now()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockChangeLogRepo) ListByGroup(_ context.Context, groupID string, offset, limit int) ([]model.SeriesChangeLog, int64, error) {
	var result []model.SeriesChangeLog
	for _, l := range m.logs {
		if l.GroupID == groupID {
			result = append(result, l)
		}
	}
	return result, int64(len(result)), nil
}

// ── Mock EntityConfigRepository ──

type mockEntityConfigRepo struct {
	configs map[string]*model.EntityConfig
}

func newMockEntityConfigRepo() *mockEntityConfigRepo {
	return &mockEntityConfigRepo{configs: make(map[string]*model.EntityConfig)}
}

func (m *mockEntityConfigRepo) GetByTable(_ context.Context, tableName string) (*model.EntityConfig, error) {
	if c, ok := m.configs[tableName]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntityConfigRepo) List(_ context.Context) ([]model.EntityConfig, error) {
	var result []model.EntityConfig
	for _, c := range m.configs {
		result = append(result, *c)
	}
	return result, nil
}

// ── Mock EntityRepository ──
// 用内存表模拟目标实体行：table → id → 行数据

type mockEntityRepo struct {
	tables map[string]map[string]map[string]interface{}
	seq    int
}

func newMockEntityRepo() *mockEntityRepo {
	return &mockEntityRepo{tables: make(map[string]map[string]map[string]interface{})}
}

func (m *mockEntityRepo) table(name string) map[string]map[string]interface{} {
	if m.tables[name] == nil {
		m.tables[name] = make(map[string]map[string]interface{})
	}
	return m.tables[name]
}

func (m *mockEntityRepo) GetRows(_ context.Context, table string, filters map[string]interface{}) ([]map[string]interface{}, error) {
	var result []map[string]interface{}
	for id, row := range m.table(table) {
		match := true
		for k, v := range filters {
			if row[k] != v {
				match = false
				break
			}
		}
		if match {
			cp := copyRow(row)
			cp["id"] = id
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockEntityRepo) GetRowsOverlapping(_ context.Context, table, rangeColumn string, window timerange.Range, scopeColumn, scopeValue string) ([]map[string]interface{}, error) {
	var result []map[string]interface{}
	for id, row := range m.table(table) {
		if scopeColumn != "" {
			if sv, _ := row[scopeColumn].(string); sv != scopeValue {
				continue
			}
		}
		raw, _ := row[rangeColumn].(string)
		rng, err := timerange.Parse(raw)
		if err != nil {
			continue
		}
		if window.Overlaps(rng) {
			cp := copyRow(row)
			cp["id"] = id
			result = append(result, cp)
		}
	}
	return result, nil
}

func (m *mockEntityRepo) GetRow(_ context.Context, table, id string) (map[string]interface{}, error) {
	if row, ok := m.table(table)[id]; ok {
		cp := copyRow(row)
		cp["id"] = id
		return cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntityRepo) InsertRow(_ context.Context, table string, values map[string]interface{}) (string, error) {
	m.seq++
	id := fmt.Sprintf("ent-%d", m.seq)
	m.table(table)[id] = copyRow(values)
	return id, nil
}

func (m *mockEntityRepo) UpdateRow(_ context.Context, table, id string, values map[string]interface{}) error {
	row, ok := m.table(table)[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range values {
		row[k] = v
	}
	return nil
}

func (m *mockEntityRepo) DeleteRow(_ context.Context, table, id string) error {
	if _, ok := m.table(table)[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.table(table), id)
	return nil
}

func copyRow(row map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(row))
	for k, v := range row {
		cp[k] = v
	}
	return cp
}

// ── Mock TxRunner ──
// 单测不关心事务边界，直接透传当前聚合

type mockTxRunner struct {
	repo *repository.Repository
}

func (m *mockTxRunner) RunInTx(_ context.Context, fn func(txRepo *repository.Repository) error) error {
	return fn(m.repo)
}

// newMockRepository 组装全 mock 的 Repository 聚合
func newMockRepository() (*repository.Repository, *mockSeriesInstanceRepo, *mockEntityRepo, *mockEntityConfigRepo) {
	instanceRepo := newMockSeriesInstanceRepo()
	entityRepo := newMockEntityRepo()
	configRepo := newMockEntityConfigRepo()
	repo := &repository.Repository{
		SeriesGroup:     newMockSeriesGroupRepo(),
		SeriesVersion:   newMockSeriesVersionRepo(),
		SeriesInstance:  instanceRepo,
		SeriesChangeLog: newMockChangeLogRepo(),
		EntityConfig:    configRepo,
		Entity:          entityRepo,
	}
	repo.Tx = &mockTxRunner{repo: repo}
	return repo, instanceRepo, entityRepo, configRepo
}
