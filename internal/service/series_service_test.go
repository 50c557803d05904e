package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/civic-os/series-backend/config"
	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/model"
	"github.com/civic-os/series-backend/internal/recurrence"
	"github.com/civic-os/series-backend/internal/repository"
)

// ── 测试辅助 ──

const testTable = "court_reservations"

// courtConfig 测试用实体配置：羽毛球场预订表
func courtConfig() *model.EntityConfig {
	return &model.EntityConfig{
		TableName_:            testTable,
		DisplayName:           "场地预订",
		SupportsRecurring:     true,
		RecurringPropertyName: "reserved_range",
		DisplayColumn:         "court_name",
		Properties: datatypes.JSON(`[
			{"name": "reserved_range", "display_name": "预订时段", "type": "tstzrange", "template_eligible": false},
			{"name": "court_name", "display_name": "场地", "type": "text", "template_eligible": true,
			 "rules": [{"kind": "minLength", "value": 2, "message": "场地名称至少 2 个字符"}]},
			{"name": "notes", "display_name": "备注", "type": "text", "template_eligible": true}
		]`),
	}
}

func setupTestSeriesService() (SeriesService, *repository.Repository, *mockSeriesInstanceRepo, *mockEntityRepo) {
	repo, instRepo, entRepo, cfgRepo := newMockRepository()
	cfgRepo.configs[testTable] = courtConfig()

	cfg := &config.SeriesConfig{PreviewLimit: 100, MaterializeLimit: 1000}
	logger := zap.NewNop()
	conflict := NewConflictService(repo, logger)
	svc := NewSeriesService(repo, conflict, cfg, logger)
	return svc, repo, instRepo, entRepo
}

// futureDtstart 返回一个安全处于"后天之后"的整点起点
func futureDtstart() time.Time {
	return time.Now().UTC().Truncate(time.Hour).Add(72 * time.Hour)
}

func createWeeklySeries(t *testing.T, svc SeriesService, dtstart time.Time, count int) *dto.CreateSeriesResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName: "每周羽毛球",
		EntityTable: testTable,
		RRule:       "FREQ=WEEKLY;COUNT=" + strconv.Itoa(count),
		Dtstart:     dtstart,
		Duration:    "PT1H",
		Template:    map[string]interface{}{"court_name": "3号场", "notes": "常规训练"},
		ExpandNow:   true,
	}, "user-001")
	if err != nil {
		t.Fatalf("创建系列应成功: %v", err)
	}
	return resp
}

// ── Create 测试 ──

func TestSeriesService_Create_Success(t *testing.T) {
	svc, _, instRepo, entRepo := setupTestSeriesService()
	dtstart := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	resp := createWeeklySeries(t, svc, dtstart, 4)
	if !resp.Success {
		t.Error("期望 Success=true")
	}
	if resp.InstancesCreated != 4 {
		t.Errorf("期望创建 4 个实例，实际 %d", resp.InstancesCreated)
	}
	if resp.ConflictsSkipped != 0 {
		t.Errorf("期望 0 个冲突跳过，实际 %d", resp.ConflictsSkipped)
	}

	if len(entRepo.table(testTable)) != 4 {
		t.Errorf("期望落 4 行实体，实际 %d", len(entRepo.table(testTable)))
	}
	for _, inst := range instRepo.instances {
		if inst.EntityID == nil {
			t.Error("非冲突实例应带实体行 ID")
			continue
		}
		row := entRepo.table(testTable)[*inst.EntityID]
		if row == nil {
			t.Error("实例指向的实体行不存在")
			continue
		}
		if row["court_name"] != "3号场" {
			t.Errorf("模板字段未写入实体行: %v", row["court_name"])
		}
		if _, ok := row["reserved_range"].(string); !ok {
			t.Error("实体行缺少时间区间列")
		}
	}
}

func TestSeriesService_Create_SkipConflicts(t *testing.T) {
	svc, repo, instRepo, entRepo := setupTestSeriesService()
	dtstart := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// 预置一行与第二次发生（3/9 09:00-10:00）交叠的既有预订
	if _, err := entRepo.InsertRow(context.Background(), testTable, map[string]interface{}{
		"court_name":     "3号场",
		"reserved_range": "[2026-03-09T09:30:00Z,2026-03-09T10:30:00Z)",
	}); err != nil {
		t.Fatalf("预置实体行失败: %v", err)
	}

	resp, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName:   "每周羽毛球",
		EntityTable:   testTable,
		RRule:         "FREQ=WEEKLY;COUNT=4",
		Dtstart:       dtstart,
		Duration:      "PT1H",
		Template:      map[string]interface{}{"court_name": "3号场"},
		ExpandNow:     true,
		SkipConflicts: true,
	}, "user-001")
	if err != nil {
		t.Fatalf("创建系列应成功: %v", err)
	}

	if resp.InstancesCreated != 3 {
		t.Errorf("期望 3 个实例落实体行，实际 %d", resp.InstancesCreated)
	}
	if resp.ConflictsSkipped != 1 {
		t.Errorf("期望 1 个冲突跳过，实际 %d", resp.ConflictsSkipped)
	}

	// 冲突场次也要有实例行：异常标记 conflict_skipped，entity_id 为空
	total, _ := repo.SeriesInstance.CountByGroup(context.Background(), resp.GroupID)
	if total != 4 {
		t.Errorf("期望共 4 个实例行，实际 %d", total)
	}
	var skipped *model.SeriesInstance
	for _, inst := range instRepo.instances {
		if inst.IsException {
			skipped = inst
		}
	}
	if skipped == nil {
		t.Fatal("应存在一个异常实例")
	}
	if skipped.ExceptionType == nil || *skipped.ExceptionType != model.ExceptionConflictSkipped {
		t.Errorf("异常类型应为 conflict_skipped，实际 %v", skipped.ExceptionType)
	}
	if skipped.EntityID != nil {
		t.Error("冲突跳过的实例不应落实体行")
	}
	if !skipped.OccurrenceDate.Equal(dtstart.AddDate(0, 0, 7)) {
		t.Errorf("被跳过的应是第二次发生，实际 %v", skipped.OccurrenceDate)
	}
}

func TestSeriesService_Create_TemplateInvalid(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	_, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName: "每周羽毛球",
		EntityTable: testTable,
		RRule:       "FREQ=WEEKLY;COUNT=4",
		Dtstart:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration:    "PT1H",
		Template:    map[string]interface{}{"court_name": "A"}, // 触发 minLength
		ExpandNow:   true,
	}, "user-001")
	if !errors.Is(err, ErrTemplateInvalid) {
		t.Errorf("期望 ErrTemplateInvalid，实际: %v", err)
	}
}

func TestSeriesService_Create_UnknownTemplateField(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	_, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName: "每周羽毛球",
		EntityTable: testTable,
		RRule:       "FREQ=WEEKLY;COUNT=4",
		Dtstart:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration:    "PT1H",
		Template:    map[string]interface{}{"no_such_field": 1},
	}, "user-001")
	if !errors.Is(err, ErrTemplateInvalid) {
		t.Errorf("未声明字段期望 ErrTemplateInvalid，实际: %v", err)
	}
}

func TestSeriesService_Create_EntityNotRecurring(t *testing.T) {
	svc, repo, _, _ := setupTestSeriesService()
	cfgRepo := repo.EntityConfig.(*mockEntityConfigRepo)
	cfgRepo.configs["plain_table"] = &model.EntityConfig{
		TableName_:        "plain_table",
		DisplayName:       "普通表",
		SupportsRecurring: false,
	}

	_, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName: "测试",
		EntityTable: "plain_table",
		Dtstart:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration:    "PT1H",
	}, "user-001")
	if !errors.Is(err, ErrEntityNotRecurring) {
		t.Errorf("期望 ErrEntityNotRecurring，实际: %v", err)
	}
}

func TestSeriesService_Create_BadRRule(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	_, err := svc.Create(context.Background(), &dto.CreateSeriesRequest{
		DisplayName: "每周羽毛球",
		EntityTable: testTable,
		RRule:       "FREQ=WEEKLY;BYDAY=MO",
		Dtstart:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration:    "PT1H",
	}, "user-001")
	if !errors.Is(err, recurrence.ErrRuleParse) {
		t.Errorf("期望 ErrRuleParse，实际: %v", err)
	}
}

// ── Split 测试 ──

func TestSeriesService_Split_Success(t *testing.T) {
	svc, repo, instRepo, _ := setupTestSeriesService()
	dtstart := futureDtstart()
	created := createWeeklySeries(t, svc, dtstart, 6)

	oldSeriesID := created.SeriesID
	splitDate := dtstart.AddDate(0, 0, 21) // 第 4 次发生

	resp, err := svc.Split(context.Background(), created.GroupID, &dto.SplitSeriesRequest{
		SplitDate:   splitDate,
		NewTemplate: map[string]interface{}{"court_name": "5号场"},
	}, "user-001")
	if err != nil {
		t.Fatalf("拆分应成功: %v", err)
	}
	if resp.NewSeriesID == "" || resp.NewSeriesID == oldSeriesID {
		t.Error("拆分应产生新版本 ID")
	}
	if resp.InstancesPreserved != 3 {
		t.Errorf("拆分点之前应保留 3 个实例，实际 %d", resp.InstancesPreserved)
	}
	if resp.InstancesRegenerated != 6 {
		t.Errorf("新版本应再生成 6 个实例，实际 %d", resp.InstancesRegenerated)
	}

	// 旧版本已终止，新版本成为当前版本
	old, err := repo.SeriesVersion.GetByID(context.Background(), oldSeriesID)
	if err != nil {
		t.Fatalf("旧版本应仍存在: %v", err)
	}
	if old.TerminatedAt == nil || !old.TerminatedAt.Equal(splitDate) {
		t.Errorf("旧版本应在拆分点终止: %v", old.TerminatedAt)
	}
	current, err := repo.SeriesVersion.GetCurrent(context.Background(), created.GroupID)
	if err != nil {
		t.Fatalf("应存在当前版本: %v", err)
	}
	if current.SeriesID != resp.NewSeriesID {
		t.Error("当前版本应为拆分产生的新版本")
	}
	if current.EntityTemplate["court_name"] != "5号场" {
		t.Errorf("新版本模板应携带覆盖字段: %v", current.EntityTemplate["court_name"])
	}

	// 拆分点之前的实例原封不动地留在旧版本下
	for _, inst := range instRepo.instances {
		if inst.OccurrenceDate.Before(splitDate) {
			if inst.SeriesID != oldSeriesID {
				t.Errorf("拆分点之前的实例不应改挂版本: %v", inst.OccurrenceDate)
			}
		} else if inst.SeriesID != resp.NewSeriesID {
			t.Errorf("拆分点之后的实例应属于新版本: %v", inst.OccurrenceDate)
		}
	}
}

func TestSeriesService_Split_TooEarly(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 4)

	_, err := svc.Split(context.Background(), created.GroupID, &dto.SplitSeriesRequest{
		SplitDate: time.Now().UTC(), // 今天：必须拒绝
	}, "user-001")
	if !errors.Is(err, ErrSplitDateTooEarly) {
		t.Errorf("期望 ErrSplitDateTooEarly，实际: %v", err)
	}
}

func TestSeriesService_Split_SeriesEnded(t *testing.T) {
	svc, repo, _, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 4)

	// 直接把当前版本终止掉
	if err := repo.SeriesVersion.Terminate(context.Background(), created.SeriesID, futureDtstart()); err != nil {
		t.Fatalf("终止版本失败: %v", err)
	}

	_, err := svc.Split(context.Background(), created.GroupID, &dto.SplitSeriesRequest{
		SplitDate: futureDtstart().AddDate(0, 0, 14),
	}, "user-001")
	if !errors.Is(err, ErrSeriesEnded) {
		t.Errorf("期望 ErrSeriesEnded，实际: %v", err)
	}
}

func TestSeriesService_Split_GroupNotFound(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	_, err := svc.Split(context.Background(), "no-such-group", &dto.SplitSeriesRequest{
		SplitDate: futureDtstart(),
	}, "user-001")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际: %v", err)
	}
}

// ── UpdateTemplate 测试 ──

func TestSeriesService_UpdateTemplate_SkipsExceptions(t *testing.T) {
	svc, repo, instRepo, entRepo := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 5)

	// 把其中一个实例标成异常（用户手工改过）
	var excepted string
	for id, inst := range instRepo.instances {
		et := model.ExceptionModified
		inst.IsException = true
		inst.ExceptionType = &et
		excepted = id
		break
	}

	resp, err := svc.UpdateTemplate(context.Background(), created.GroupID, &dto.UpdateTemplateRequest{
		Template: map[string]interface{}{"notes": "改到室内馆"},
	}, "user-001")
	if err != nil {
		t.Fatalf("更新模板应成功: %v", err)
	}
	if resp.InstancesUpdated != 4 {
		t.Errorf("期望回填 4 个实例，实际 %d", resp.InstancesUpdated)
	}
	if resp.ExceptionsSkipped != 1 {
		t.Errorf("期望跳过 1 个异常实例，实际 %d", resp.ExceptionsSkipped)
	}

	// 版本模板已合并
	current, _ := repo.SeriesVersion.GetCurrent(context.Background(), created.GroupID)
	if current.EntityTemplate["notes"] != "改到室内馆" {
		t.Errorf("版本模板未更新: %v", current.EntityTemplate["notes"])
	}
	if current.EntityTemplate["court_name"] != "3号场" {
		t.Error("未覆盖的模板字段应保留")
	}

	// 异常实例的实体行保持原值
	exceptRow := entRepo.table(testTable)[*instRepo.instances[excepted].EntityID]
	if exceptRow["notes"] == "改到室内馆" {
		t.Error("异常实例的实体行不应被回填")
	}
}

// ── Delete 测试 ──

func TestSeriesService_Delete_WithEntities(t *testing.T) {
	svc, repo, _, entRepo := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 4)

	resp, err := svc.Delete(context.Background(), created.GroupID, true, "user-001")
	if err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if resp.InstancesRemoved != 4 {
		t.Errorf("期望移除 4 个实例，实际 %d", resp.InstancesRemoved)
	}
	if len(entRepo.table(testTable)) != 0 {
		t.Errorf("delete_entities=true 时实体行应全部删除，剩余 %d", len(entRepo.table(testTable)))
	}
	if _, err := repo.SeriesGroup.GetByID(context.Background(), created.GroupID); err == nil {
		t.Error("系列组应已删除")
	}
}

func TestSeriesService_Delete_KeepEntities(t *testing.T) {
	svc, _, _, entRepo := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 4)

	if _, err := svc.Delete(context.Background(), created.GroupID, false, "user-001"); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	if len(entRepo.table(testTable)) != 4 {
		t.Errorf("缺省时实体行应保留，实际剩余 %d", len(entRepo.table(testTable)))
	}
}

// ── Membership 测试 ──

func TestSeriesService_Membership(t *testing.T) {
	svc, _, instRepo, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 3)

	var someEntityID string
	for _, inst := range instRepo.instances {
		someEntityID = *inst.EntityID
		break
	}

	resp, err := svc.GetMembership(context.Background(), &dto.MembershipRequest{
		EntityTable: testTable,
		EntityID:    someEntityID,
	})
	if err != nil {
		t.Fatalf("归属查询应成功: %v", err)
	}
	if !resp.IsMember {
		t.Error("期望 is_member=true")
	}
	if resp.GroupID == nil || *resp.GroupID != created.GroupID {
		t.Error("归属的组 ID 不正确")
	}

	// 不属于任何系列的行
	miss, err := svc.GetMembership(context.Background(), &dto.MembershipRequest{
		EntityTable: testTable,
		EntityID:    "no-such-entity",
	})
	if err != nil {
		t.Fatalf("归属查询应成功: %v", err)
	}
	if miss.IsMember {
		t.Error("期望 is_member=false")
	}
}

// ── 单场编辑测试 ──

func firstInstanceAfter(instRepo *mockSeriesInstanceRepo, after time.Time) *model.SeriesInstance {
	var pick *model.SeriesInstance
	for _, inst := range instRepo.instances {
		if inst.OccurrenceDate.After(after) {
			if pick == nil || inst.OccurrenceDate.Before(pick.OccurrenceDate) {
				pick = inst
			}
		}
	}
	return pick
}

func TestSeriesService_OccurrenceEdit_ThisOnly_Cancel(t *testing.T) {
	svc, _, instRepo, entRepo := setupTestSeriesService()
	createWeeklySeries(t, svc, futureDtstart(), 4)

	target := firstInstanceAfter(instRepo, time.Now())
	entityID := *target.EntityID

	resp, err := svc.ApplyOccurrenceEdit(context.Background(), target.InstanceID, &dto.OccurrenceEditRequest{
		Scope:  dto.ScopeThisOnly,
		Cancel: true,
	}, "user-001")
	if err != nil {
		t.Fatalf("取消单场应成功: %v", err)
	}
	if resp.Action != string(ActionException) {
		t.Errorf("期望 action=exception，实际 %s", resp.Action)
	}

	got, _ := instRepo.GetByID(context.Background(), target.InstanceID)
	if !got.IsException || got.ExceptionType == nil || *got.ExceptionType != model.ExceptionCancelled {
		t.Error("实例应标记为 cancelled 异常")
	}
	if got.EntityID != nil {
		t.Error("取消后 entity_id 应置空")
	}
	if _, ok := entRepo.table(testTable)[entityID]; ok {
		t.Error("取消后实体行应删除")
	}
}

func TestSeriesService_OccurrenceEdit_ThisOnly_Modify(t *testing.T) {
	svc, _, instRepo, entRepo := setupTestSeriesService()
	createWeeklySeries(t, svc, futureDtstart(), 4)

	target := firstInstanceAfter(instRepo, time.Now())

	resp, err := svc.ApplyOccurrenceEdit(context.Background(), target.InstanceID, &dto.OccurrenceEditRequest{
		Scope:  dto.ScopeThisOnly,
		Values: map[string]interface{}{"notes": "临时换教练"},
	}, "user-001")
	if err != nil {
		t.Fatalf("单场修改应成功: %v", err)
	}
	if resp.Action != string(ActionException) {
		t.Errorf("期望 action=exception，实际 %s", resp.Action)
	}

	got, _ := instRepo.GetByID(context.Background(), target.InstanceID)
	if !got.IsException || got.ExceptionType == nil || *got.ExceptionType != model.ExceptionModified {
		t.Error("实例应标记为 modified 异常")
	}
	row := entRepo.table(testTable)[*got.EntityID]
	if row["notes"] != "临时换教练" {
		t.Errorf("实体行应就地更新: %v", row["notes"])
	}
}

func TestSeriesService_OccurrenceEdit_ThisAndFuture(t *testing.T) {
	svc, _, instRepo, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 6)

	// 选一个明确晚于后天的场次
	target := firstInstanceAfter(instRepo, time.Now().Add(96*time.Hour))
	if target == nil {
		t.Fatal("测试数据应包含足够晚的场次")
	}

	resp, err := svc.ApplyOccurrenceEdit(context.Background(), target.InstanceID, &dto.OccurrenceEditRequest{
		Scope:  dto.ScopeThisAndFuture,
		Values: map[string]interface{}{"court_name": "5号场"},
	}, "user-001")
	if err != nil {
		t.Fatalf("此场次及以后编辑应成功: %v", err)
	}
	if resp.Action != string(ActionSplit) {
		t.Errorf("期望 action=split，实际 %s", resp.Action)
	}
	if resp.NewSeriesID == nil || *resp.NewSeriesID == created.SeriesID {
		t.Error("split 应返回新版本 ID")
	}
}

func TestSeriesService_OccurrenceEdit_All(t *testing.T) {
	svc, repo, instRepo, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 4)

	target := firstInstanceAfter(instRepo, time.Now())

	resp, err := svc.ApplyOccurrenceEdit(context.Background(), target.InstanceID, &dto.OccurrenceEditRequest{
		Scope:  dto.ScopeAll,
		Values: map[string]interface{}{"notes": "全系列调整"},
	}, "user-001")
	if err != nil {
		t.Fatalf("全部场次编辑应成功: %v", err)
	}
	if resp.Action != string(ActionTemplateUpdate) {
		t.Errorf("期望 action=template_update，实际 %s", resp.Action)
	}

	current, _ := repo.SeriesVersion.GetCurrent(context.Background(), created.GroupID)
	if current.EntityTemplate["notes"] != "全系列调整" {
		t.Error("all 作用域应更新版本模板")
	}
}

func TestSeriesService_OccurrenceEdit_CancelAll(t *testing.T) {
	svc, _, instRepo, _ := setupTestSeriesService()
	createWeeklySeries(t, svc, futureDtstart(), 4)
	target := firstInstanceAfter(instRepo, time.Now())

	_, err := svc.ApplyOccurrenceEdit(context.Background(), target.InstanceID, &dto.OccurrenceEditRequest{
		Scope:  dto.ScopeAll,
		Cancel: true,
	}, "user-001")
	if !errors.Is(err, ErrCancelAllForbidden) {
		t.Errorf("取消全部应显式拒绝，实际: %v", err)
	}
}

func TestSeriesService_OccurrenceEdit_InstanceNotFound(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	_, err := svc.ApplyOccurrenceEdit(context.Background(), "no-such-instance", &dto.OccurrenceEditRequest{
		Scope: dto.ScopeThisOnly,
	}, "user-001")
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("期望 ErrInstanceNotFound，实际: %v", err)
	}
}

// ── 查询与预览测试 ──

func TestSeriesService_Get_Status(t *testing.T) {
	svc, repo, _, _ := setupTestSeriesService()
	created := createWeeklySeries(t, svc, futureDtstart(), 3)

	detail, err := svc.Get(context.Background(), created.GroupID)
	if err != nil {
		t.Fatalf("详情查询应成功: %v", err)
	}
	if detail.Status != "active" {
		t.Errorf("有当前版本时状态应为 active，实际 %s", detail.Status)
	}
	if detail.InstanceCount != 3 {
		t.Errorf("期望实例数 3，实际 %d", detail.InstanceCount)
	}
	if len(detail.Versions) != 1 {
		t.Errorf("期望 1 个版本，实际 %d", len(detail.Versions))
	}

	// 终止唯一版本后状态变为 ended
	if err := repo.SeriesVersion.Terminate(context.Background(), created.SeriesID, futureDtstart().AddDate(0, 1, 0)); err != nil {
		t.Fatalf("终止失败: %v", err)
	}
	detail, _ = svc.Get(context.Background(), created.GroupID)
	if detail.Status != "ended" {
		t.Errorf("全部版本终止后状态应为 ended，实际 %s", detail.Status)
	}
}

func TestSeriesService_PreviewOccurrences(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	intervals, err := svc.PreviewOccurrences(context.Background(), &dto.PreviewOccurrencesRequest{
		RRule:    "FREQ=DAILY;COUNT=5",
		Dtstart:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration: "PT30M",
	})
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if len(intervals) != 5 {
		t.Fatalf("期望 5 个区间，实际 %d", len(intervals))
	}
	if intervals[0].Range != "[2026-03-02T09:00:00Z,2026-03-02T09:30:00Z)" {
		t.Errorf("线格式不正确: %s", intervals[0].Range)
	}
}

func TestSeriesService_PreviewOccurrences_DefaultLimit(t *testing.T) {
	svc, _, _, _ := setupTestSeriesService()

	// 无界规则 + 未给 limit：落到配置的预览上限
	intervals, err := svc.PreviewOccurrences(context.Background(), &dto.PreviewOccurrencesRequest{
		RRule:    "FREQ=DAILY",
		Dtstart:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Duration: "PT30M",
	})
	if err != nil {
		t.Fatalf("预览应成功: %v", err)
	}
	if len(intervals) != 100 {
		t.Errorf("期望落到默认上限 100，实际 %d", len(intervals))
	}
}
