package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoCapture 还没有拍照，不做任何处理
	ErrNoCapture = errors.New("no captured frame to analyze")
	// ErrNoFaceDetected 分类器没有给出主情绪，属于正常结果
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrAnalysisFailure 解码或分类失败
	ErrAnalysisFailure = errors.New("analysis failure")
)

// Stage 失败发生的阶段
type Stage string

const (
	StageDecode   Stage = "decode"
	StageInit     Stage = "init"
	StageClassify Stage = "classify"
)

// AnalysisError 包装解码或分类过程中的错误
type AnalysisError struct {
	CaptureID string
	Stage     Stage
	Err       error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed during %s: %v", e.Stage, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrAnalysisFailure) 成立
func (e *AnalysisError) Is(target error) bool {
	return target == ErrAnalysisFailure
}
