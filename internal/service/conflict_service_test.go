package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/civic-os/series-backend/internal/dto"
	"github.com/civic-os/series-backend/internal/timerange"
)

func setupTestConflictService() (ConflictService, *mockEntityRepo) {
	repo, _, entRepo, cfgRepo := newMockRepository()
	cfgRepo.configs[testTable] = courtConfig()
	return NewConflictService(repo, zap.NewNop()), entRepo
}

func seedReservation(t *testing.T, entRepo *mockEntityRepo, court, rangeText string) {
	t.Helper()
	if _, err := entRepo.InsertRow(context.Background(), testTable, map[string]interface{}{
		"court_name":     court,
		"reserved_range": rangeText,
	}); err != nil {
		t.Fatalf("预置实体行失败: %v", err)
	}
}

func candidate(t *testing.T, start, end string) timerange.Range {
	t.Helper()
	r, err := timerange.Parse("[" + start + "," + end + ")")
	if err != nil {
		t.Fatalf("构造候选区间失败: %v", err)
	}
	return r
}

func TestConflictService_Overlap(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	seedReservation(t, entRepo, "3号场", "[2026-03-02T09:30:00Z,2026-03-02T10:30:00Z)")

	result, err := svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: testTable},
		[]timerange.Range{
			candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z"), // 交叠
			candidate(t, "2026-03-02T11:00:00Z", "2026-03-02T12:00:00Z"), // 不相交
		})
	if err != nil {
		t.Fatalf("检测应成功: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("结果应与候选同序同长，实际 %d", len(result))
	}
	if !result[0].HasConflict {
		t.Error("交叠候选应判定冲突")
	}
	if result[0].ConflictingDisplay == nil || *result[0].ConflictingDisplay != "3号场" {
		t.Errorf("冲突结果应带展示列值: %v", result[0].ConflictingDisplay)
	}
	if result[1].HasConflict {
		t.Error("不相交候选不应判定冲突")
	}
}

func TestConflictService_TouchingNotConflict(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	seedReservation(t, entRepo, "3号场", "[2026-03-02T10:00:00Z,2026-03-02T11:00:00Z)")

	// 半开区间首尾相接不算冲突
	result, err := svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: testTable},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if err != nil {
		t.Fatalf("检测应成功: %v", err)
	}
	if result[0].HasConflict {
		t.Error("[9,10) 与 [10,11) 不应冲突")
	}
}

func TestConflictService_ScopeFilter(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	// 同一时段，另一块场地
	seedReservation(t, entRepo, "1号场", "[2026-03-02T09:00:00Z,2026-03-02T10:00:00Z)")

	result, err := svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: testTable, ScopeColumn: "court_name", ScopeValue: "3号场"},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if err != nil {
		t.Fatalf("检测应成功: %v", err)
	}
	if result[0].HasConflict {
		t.Error("范围列不同的行不应参与冲突判定")
	}

	// 同一块场地则冲突
	result, err = svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: testTable, ScopeColumn: "court_name", ScopeValue: "1号场"},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if err != nil {
		t.Fatalf("检测应成功: %v", err)
	}
	if !result[0].HasConflict {
		t.Error("同范围值的交叠行应判定冲突")
	}
}

func TestConflictService_DirtyRowSkipped(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	seedReservation(t, entRepo, "3号场", "乱七八糟的区间")

	result, err := svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: testTable},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if err != nil {
		t.Fatalf("脏数据不应放倒检测: %v", err)
	}
	if result[0].HasConflict {
		t.Error("无法解析的行应跳过而非判冲突")
	}
}

func TestConflictService_NoCandidates(t *testing.T) {
	svc, _ := setupTestConflictService()

	if _, err := svc.DetectConflicts(context.Background(), dto.ConflictScope{EntityTable: testTable}, nil); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("空候选期望 ErrNoCandidates，实际: %v", err)
	}
}

func TestConflictService_UnknownTable(t *testing.T) {
	svc, _ := setupTestConflictService()

	_, err := svc.DetectConflicts(context.Background(),
		dto.ConflictScope{EntityTable: "no_such_table"},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if !errors.Is(err, ErrEntityConfigNotFound) {
		t.Errorf("期望 ErrEntityConfigNotFound，实际: %v", err)
	}
}

func TestConflictService_ContextCancelled(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	seedReservation(t, entRepo, "3号场", "[2026-03-02T09:00:00Z,2026-03-02T10:00:00Z)")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.DetectConflicts(ctx,
		dto.ConflictScope{EntityTable: testTable},
		[]timerange.Range{candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("已取消的上下文应中断检测，实际: %v", err)
	}
}

// 结果顺序必须与输入一致（前端逐行对齐展示）
func TestConflictService_PreservesOrder(t *testing.T) {
	svc, entRepo := setupTestConflictService()
	seedReservation(t, entRepo, "3号场", "[2026-03-04T09:00:00Z,2026-03-04T10:00:00Z)")

	candidates := []timerange.Range{
		candidate(t, "2026-03-02T09:00:00Z", "2026-03-02T10:00:00Z"),
		candidate(t, "2026-03-04T09:00:00Z", "2026-03-04T10:00:00Z"),
		candidate(t, "2026-03-06T09:00:00Z", "2026-03-06T10:00:00Z"),
	}
	result, err := svc.DetectConflicts(context.Background(), dto.ConflictScope{EntityTable: testTable}, candidates)
	if err != nil {
		t.Fatalf("检测应成功: %v", err)
	}
	for i, r := range result {
		if !r.OccurrenceStart.Equal(candidates[i].Start) {
			t.Errorf("第 %d 项顺序不一致", i)
		}
	}
	if result[0].HasConflict || !result[1].HasConflict || result[2].HasConflict {
		t.Error("仅第 2 个候选应判定冲突")
	}
}
