package browser

// Site entry points. The library uses an ASP SSO login gateway that sets the
// session cookie consumed by the downstream Spring (.do) reservation pages.
const (
	loginURL       = "https://www.suwonlib.go.kr/inc/sso_login_s.asp"
	reservationURL = "https://www.suwonlib.go.kr/reserve/camping/campingApplySimple.do"
)

// Selector candidates, comma-joined so any one match wins. These are educated
// guesses based on common Korean library site patterns and must be verified
// against the live site with DevTools before the first production run.
const (
	selLoginID     = "input[name='mb_id'], #mb_id, input[name='userid']"
	selLoginPW     = "input[name='mb_password'], #mb_password, input[type='password']"
	selLoginSubmit = "input[type='submit'], button[type='submit'], .btn_login, a.login_btn"

	selCampingDate = "input[name='campingDate'], #campingDate, input[name='resveDate']"
	selCampsite    = "select[name='campsiteNo'], select[name='siteNo'], select[name='campNo']"
	selAttendee    = "input[name='personCnt'], input[name='attendeeCnt'], input[name='nop']"
	selApply       = "input[type='submit'][value*='신청'], button.btn_apply, .reservation_submit, input[value*='예약']"

	selSuccess = ".success_msg, #successMsg, .complete_msg, .resve_complete"
	selError   = ".error_msg, #errorMsg, .fail_msg, .already_full, .alert_msg"
)

// Labels used in dry-run field reports.
const (
	labelDate     = "날짜 필드"
	labelCampsite = "구역 선택"
	labelAttendee = "인원 입력"
	labelApply    = "제출 버튼"
)
