package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 실행 결과, 리포트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   COLLECT → DIFF → NOTIFY → QUALITY → REPORT

// Stage represents a pipeline stage
type Stage string

const (
	// StageCollect: 오늘 스냅샷 수집 (소스 실행, 실패 시 어제 데이터로 대체)
	// 위치: internal/collector/
	StageCollect Stage = "COLLECT"

	// StageDiff: 어제 대비 변경 사항 계산 및 가격 차이 도출
	// 위치: internal/diff/
	StageDiff Stage = "DIFF"

	// StageNotify: 요약 생성 및 알림 발송
	// 위치: internal/notify/
	StageNotify Stage = "NOTIFY"

	// StageQuality: 컬럼 프로파일, 비즈니스 룰, 품질 지표
	// 위치: internal/quality/
	StageQuality Stage = "QUALITY"

	// StageReport: 리포트 CSV 및 DB 저장
	// 위치: internal/pipeline/
	StageReport Stage = "REPORT"
)

func (s Stage) String() string {
	return string(s)
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{StageCollect, StageDiff, StageNotify, StageQuality, StageReport}
}

// StageResult represents the outcome of one stage of a run
type StageResult struct {
	Stage       Stage  `json:"stage"`
	Success     bool   `json:"success"`
	Skipped     bool   `json:"skipped,omitempty"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	DurationMS  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}

// SnapshotKind selects the prices or finance snapshot of a day
type SnapshotKind string

const (
	KindPrices  SnapshotKind = "prices"
	KindFinance SnapshotKind = "finance"
)

// ParseSnapshotKind accepts "prices" or "finance" ("finance_options" too)
func ParseSnapshotKind(s string) (SnapshotKind, error) {
	switch s {
	case "prices", "price":
		return KindPrices, nil
	case "finance", "finance_options":
		return KindFinance, nil
	}
	return "", invalid("kind", "unknown snapshot kind %q (prices|finance)", s)
}
