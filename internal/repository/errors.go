package repository

import "errors"

// ── 仓储层状态不变量错误 ──
//
// 这些错误对应调用方编程错误（违反版本链不变量），
// 与用户输入校验错误在 Service/Handler 层分开呈现。

var (
	// ErrCurrentVersionExists 同组已存在未终止的当前版本
	ErrCurrentVersionExists = errors.New("该系列组已存在当前版本，创建前必须先终止")
	// ErrVersionAlreadyTerminated 版本已被终止（幂等保护：重复终止报错且状态不变）
	ErrVersionAlreadyTerminated = errors.New("该系列版本已被终止")
	// ErrTerminateBeforeStart 终止时间早于版本起点
	ErrTerminateBeforeStart = errors.New("终止时间不能早于版本起始时间")
	// ErrInvalidIdentifier 动态表名/列名不合法
	ErrInvalidIdentifier = errors.New("非法的表名或列名")
)
