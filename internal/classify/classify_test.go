package classify

import (
	"strings"
	"testing"
)

func TestClassifyLayers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		snap      Snapshot
		succeeded bool
		ambiguous bool
		contains  string
	}{
		{
			name:      "explicit success marker",
			snap:      Snapshot{SuccessText: "예약이 완료되었습니다"},
			succeeded: true,
			contains:  "예약 확인",
		},
		{
			name:     "explicit error marker",
			snap:     Snapshot{ErrorText: "이미 마감된 구역입니다"},
			contains: "사이트 오류",
		},
		{
			name:      "marker wins over failure keyword",
			snap:      Snapshot{SuccessText: "신청 완료", HTML: "<body>마감</body>"},
			succeeded: true,
			contains:  "예약 확인",
		},
		{
			name:     "error marker wins over success keyword",
			snap:     Snapshot{ErrorText: "오류", HTML: "<body>예약완료</body>"},
			contains: "사이트 오류",
		},
		{
			name:      "success keyword",
			snap:      Snapshot{HTML: "<div>신청완료 되었습니다</div>"},
			succeeded: true,
			contains:  "키워드 감지",
		},
		{
			name:     "failure keyword",
			snap:     Snapshot{HTML: "<div>정원 초과</div>"},
			contains: "키워드 감지",
		},
		{
			name:      "unknown fallback",
			snap:      Snapshot{HTML: "<div>hello</div>"},
			ambiguous: true,
			contains:  "스크린샷",
		},
		{
			name:      "whitespace-only marker is not conclusive",
			snap:      Snapshot{SuccessText: "   ", HTML: "<div>마감</div>"},
			contains:  "키워드 감지",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.snap)
			if got.Succeeded != tt.succeeded {
				t.Fatalf("Succeeded = %v, want %v (msg %q)", got.Succeeded, tt.succeeded, got.Message)
			}
			if got.Ambiguous != tt.ambiguous {
				t.Fatalf("Ambiguous = %v, want %v", got.Ambiguous, tt.ambiguous)
			}
			if !strings.Contains(got.Message, tt.contains) {
				t.Fatalf("Message = %q, want it to contain %q", got.Message, tt.contains)
			}
		})
	}
}

func TestClassifyNeverGuessesSuccess(t *testing.T) {
	t.Parallel()
	got := Classify(Snapshot{})
	if got.Succeeded {
		t.Fatal("empty snapshot classified as success")
	}
	if !got.Ambiguous {
		t.Fatal("empty snapshot should be ambiguous")
	}
}

func TestDryRunReport(t *testing.T) {
	t.Parallel()
	got := DryRun([]FieldCheck{
		{Label: "날짜 필드", Found: true},
		{Label: "구역 선택", Found: false},
		{Label: "인원 입력", Found: true},
		{Label: "제출 버튼", Found: false},
	})
	if !got.Succeeded {
		t.Fatal("dry run detection must report through the success path")
	}
	if !strings.Contains(got.Message, "날짜 필드, 인원 입력") {
		t.Fatalf("found fields missing from report: %q", got.Message)
	}
	if !strings.Contains(got.Message, "구역 선택, 제출 버튼") {
		t.Fatalf("missing fields absent from report: %q", got.Message)
	}
}

func TestDryRunNoFields(t *testing.T) {
	t.Parallel()
	got := DryRun(nil)
	if !got.Succeeded {
		t.Fatal("dry run with no detected fields still succeeds")
	}
	if !strings.Contains(got.Message, "없음") {
		t.Fatalf("report should mark empty groups: %q", got.Message)
	}
}
