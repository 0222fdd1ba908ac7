// Package classify turns a post-submission page snapshot into an attempt
// outcome. The site does not return machine-readable results, so detection is
// layered best-effort: explicit marker elements, then keyword matching in the
// raw HTML, then an unknown fallback that never assumes success.
package classify

import "strings"

// Snapshot is what the driver extracts from the page after one attempt.
type Snapshot struct {
	// SuccessText and ErrorText carry the inner text of an explicit result
	// marker element when one is present, empty otherwise.
	SuccessText string
	ErrorText   string

	// HTML is the full raw page content, scanned for result keywords.
	HTML string
}

// Outcome is the immutable result of a single attempt.
type Outcome struct {
	Succeeded bool
	Message   string

	// Ambiguous marks the unknown fallback: the operator should review the
	// evidence screenshot by hand.
	Ambiguous bool

	// Evidence is the screenshot path for this attempt, if one was captured.
	Evidence string
}

// FieldCheck records whether one expected form field was found during a dry
// run. Order is preserved in the report.
type FieldCheck struct {
	Label string
	Found bool
}

// Keywords observed on the live site. Marker selectors take precedence over
// these, so a false keyword hit inside an explicit marker cannot flip the
// result.
var (
	successKeywords = []string{"예약완료", "신청완료", "접수완료", "예약이 완료"}
	failureKeywords = []string{"마감", "초과", "예약불가", "신청불가", "이미 예약", "접수불가"}
)

// Classify decides the outcome of one submission. Layers run in order and
// the first conclusive one wins.
func Classify(s Snapshot) Outcome {
	// Layer 1: explicit marker elements.
	if t := strings.TrimSpace(s.SuccessText); t != "" {
		return Outcome{Succeeded: true, Message: "예약 확인: " + t}
	}
	if t := strings.TrimSpace(s.ErrorText); t != "" {
		return Outcome{Message: "사이트 오류: " + t}
	}

	// Layer 2: keyword scan of the raw HTML.
	for _, kw := range successKeywords {
		if strings.Contains(s.HTML, kw) {
			return Outcome{Succeeded: true, Message: "예약 완료 (키워드 감지)"}
		}
	}
	for _, kw := range failureKeywords {
		if strings.Contains(s.HTML, kw) {
			return Outcome{Message: "예약 마감 또는 불가 (키워드 감지)"}
		}
	}

	// Layer 3: unknown. Treated as a failure for retry purposes.
	return Outcome{Ambiguous: true, Message: "결과 불명확 — 스크린샷을 확인하세요."}
}

// DryRun reports which expected form fields were found on the page. Detection
// itself is the dry run's success criterion, so the outcome always succeeds
// even when fields are missing; the report tells the operator what to fix.
func DryRun(checks []FieldCheck) Outcome {
	var found, missing []string
	for _, c := range checks {
		if c.Found {
			found = append(found, c.Label)
		} else {
			missing = append(missing, c.Label)
		}
	}

	var b strings.Builder
	b.WriteString("[DRY-RUN] 제출 생략\n  감지된 필드: ")
	b.WriteString(orNone(found))
	b.WriteString("\n  미감지 필드: ")
	b.WriteString(orNone(missing))
	return Outcome{Succeeded: true, Message: b.String()}
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "없음"
	}
	return strings.Join(items, ", ")
}
