// Package browser implements the page-interaction capability on a real
// Chromium instance via rod. The stealth page setup replaces the usual
// navigator.webdriver fingerprints so the site's WAF treats the session as a
// regular browser.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog"

	"github.com/example/camping-sniper/internal/classify"
	"github.com/example/camping-sniper/internal/clock"
	"github.com/example/camping-sniper/internal/config"
)

// Per-operation timeout ceilings. Every network wait is bounded; expiry is a
// retryable failure inside the attempt loop and an abort outside it.
const (
	pageLoadTimeout   = 30 * time.Second
	idleSettleTimeout = 15 * time.Second
	reloadTimeout     = 20 * time.Second
	reloadIdleTimeout = 10 * time.Second
	submitIdleTimeout = 15 * time.Second
)

// Human-pacing pauses between form interactions.
const (
	shortPause = 200 * time.Millisecond
	longPause  = 300 * time.Millisecond
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Driver automates the library site through one authenticated browser
// session. It is owned by a single controller for the run's lifetime.
type Driver struct {
	cfg config.Config
	log zerolog.Logger

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// New launches Chromium with stealth settings and opens the working page.
// Close must be called on every exit path once New succeeds.
func New(cfg config.Config, log zerolog.Logger) (*Driver, error) {
	log.Info().Bool("headless", cfg.Headless).Msg("launching browser")

	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("window-size", "1280,900")

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(b)
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1280,
		Height:            900,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      userAgent,
		AcceptLanguage: "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
	}).Call(page); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set user agent: %w", err)
	}

	log.Info().Msg("browser ready")
	return &Driver{cfg: cfg, log: log, launcher: l, browser: b, page: page}, nil
}

// Close shuts the browser down. Errors are logged only; cleanup is best
// effort and must not mask the run outcome.
func (d *Driver) Close() {
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			d.log.Warn().Err(err).Msg("browser close")
		}
	}
	if d.launcher != nil {
		d.launcher.Cleanup()
	}
}

// Login authenticates through the SSO gateway. The gateway redirects away
// from the login URL on success, so still being there after submit means the
// credentials were rejected.
func (d *Driver) Login(ctx context.Context) error {
	p := d.page.Context(ctx)
	d.log.Info().Str("url", loginURL).Msg("navigating to login page")

	if err := p.Timeout(pageLoadTimeout).Navigate(loginURL); err != nil {
		return fmt.Errorf("navigate login: %w", err)
	}
	if err := p.Timeout(pageLoadTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("login page load: %w", err)
	}
	if err := p.WaitIdle(idleSettleTimeout); err != nil {
		return fmt.Errorf("login page settle: %w", err)
	}

	if err := d.fill(p, selLoginID, d.cfg.SiteUsername); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	time.Sleep(longPause)
	if err := d.fill(p, selLoginPW, d.cfg.SitePassword); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	time.Sleep(longPause)
	if err := d.click(p, selLoginSubmit); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}
	if err := p.WaitIdle(idleSettleTimeout); err != nil {
		return fmt.Errorf("post-login settle: %w", err)
	}

	info, err := p.Info()
	if err != nil {
		return fmt.Errorf("read page url: %w", err)
	}
	if strings.Contains(strings.ToLower(info.URL), "login") {
		return fmt.Errorf("still on the login page after submit")
	}
	d.log.Info().Msg("login successful")
	return nil
}

// PrePosition loads the reservation page ahead of the opening instant so the
// first attempt is not delayed by a cold page load.
func (d *Driver) PrePosition(ctx context.Context) error {
	p := d.page.Context(ctx)
	d.log.Info().Str("url", reservationURL).Msg("pre-positioning on reservation page")

	if err := p.Timeout(pageLoadTimeout).Navigate(reservationURL); err != nil {
		return fmt.Errorf("navigate reservation page: %w", err)
	}
	if err := p.Timeout(pageLoadTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("reservation page load: %w", err)
	}
	if err := p.WaitIdle(idleSettleTimeout); err != nil {
		return fmt.Errorf("reservation page settle: %w", err)
	}
	d.log.Info().Msg("reservation page loaded")
	return nil
}

// Attempt performs one reload-fill-submit-classify cycle. The reload always
// comes first so the form never works against stale pre-opening state. With
// dryRun set the submit click is skipped and field detection is reported
// instead.
func (d *Driver) Attempt(ctx context.Context, dryRun bool) classify.Outcome {
	p := d.page.Context(ctx)

	if err := p.Timeout(reloadTimeout).Reload(); err != nil {
		return classify.Outcome{Message: "페이지 새로고침 실패: " + err.Error()}
	}
	if err := p.Timeout(reloadTimeout).WaitLoad(); err != nil {
		return classify.Outcome{Message: "페이지 로드 타임아웃: " + err.Error()}
	}
	if err := p.WaitIdle(reloadIdleTimeout); err != nil {
		return classify.Outcome{Message: "페이지 안정화 타임아웃: " + err.Error()}
	}

	checks := d.fillForm(p)

	if dryRun {
		checks = append(checks, classify.FieldCheck{Label: labelApply, Found: d.has(p, selApply)})
		out := classify.DryRun(checks)
		d.log.Info().Str("report", out.Message).Msg("dry run detection finished")
		return out
	}

	if err := d.click(p, selApply); err != nil {
		return classify.Outcome{Message: "제출 버튼 클릭 실패: " + err.Error()}
	}
	if err := p.WaitIdle(submitIdleTimeout); err != nil {
		return classify.Outcome{Message: "제출 응답 타임아웃: " + err.Error()}
	}

	return classify.Classify(d.snapshot(p))
}

// Screenshot saves a full-page capture under the configured directory. Best
// effort: failures are logged and an empty path is returned.
func (d *Driver) Screenshot(ctx context.Context, label string) string {
	if err := os.MkdirAll(d.cfg.ScreenshotDir, 0o755); err != nil {
		d.log.Error().Err(err).Msg("screenshot dir")
		return ""
	}
	ts := time.Now().In(clock.Seoul).Format("20060102_150405")
	path := filepath.Join(d.cfg.ScreenshotDir, fmt.Sprintf("%s_%s.png", label, ts))

	buf, err := d.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		d.log.Error().Err(err).Msg("screenshot capture")
		return ""
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		d.log.Error().Err(err).Msg("screenshot write")
		return ""
	}
	d.log.Info().Str("path", path).Msg("screenshot saved")
	return path
}

// fillForm fills whichever reservation fields are present and records what it
// found, preserving report order.
func (d *Driver) fillForm(p *rod.Page) []classify.FieldCheck {
	checks := make([]classify.FieldCheck, 0, 3)

	if el := d.find(p, selCampingDate); el != nil {
		if err := el.Input(d.cfg.CampingDate); err != nil {
			d.log.Warn().Err(err).Msg("date input")
		}
		time.Sleep(shortPause)
		checks = append(checks, classify.FieldCheck{Label: labelDate, Found: true})
	} else {
		checks = append(checks, classify.FieldCheck{Label: labelDate, Found: false})
	}

	if el := d.find(p, selCampsite); el != nil {
		if err := el.Select([]string{d.cfg.CampsiteName}, true, rod.SelectorTypeText); err != nil {
			d.log.Warn().Err(err).Str("campsite", d.cfg.CampsiteName).Msg("campsite select")
		}
		time.Sleep(longPause)
		checks = append(checks, classify.FieldCheck{Label: labelCampsite, Found: true})
	} else {
		checks = append(checks, classify.FieldCheck{Label: labelCampsite, Found: false})
	}

	if el := d.find(p, selAttendee); el != nil {
		if err := el.Input(strconv.Itoa(d.cfg.AttendeeCount)); err != nil {
			d.log.Warn().Err(err).Msg("attendee input")
		}
		time.Sleep(shortPause)
		checks = append(checks, classify.FieldCheck{Label: labelAttendee, Found: true})
	} else {
		checks = append(checks, classify.FieldCheck{Label: labelAttendee, Found: false})
	}

	return checks
}

// snapshot extracts the post-submission page state for classification.
func (d *Driver) snapshot(p *rod.Page) classify.Snapshot {
	var snap classify.Snapshot
	if el := d.find(p, selSuccess); el != nil {
		if t, err := el.Text(); err == nil {
			snap.SuccessText = t
		}
	}
	if el := d.find(p, selError); el != nil {
		if t, err := el.Text(); err == nil {
			snap.ErrorText = t
		}
	}
	if html, err := p.HTML(); err == nil {
		snap.HTML = html
	} else {
		d.log.Warn().Err(err).Msg("page content read")
	}
	return snap
}

// find returns the first match without waiting for one to appear.
func (d *Driver) find(p *rod.Page, sel string) *rod.Element {
	has, el, err := p.Has(sel)
	if err != nil || !has {
		return nil
	}
	return el
}

func (d *Driver) has(p *rod.Page, sel string) bool {
	return d.find(p, sel) != nil
}

// fill waits for the element (bounded) and types into it.
func (d *Driver) fill(p *rod.Page, sel, value string) error {
	el, err := p.Timeout(idleSettleTimeout).Element(sel)
	if err != nil {
		return err
	}
	return el.Input(value)
}

func (d *Driver) click(p *rod.Page, sel string) error {
	el, err := p.Timeout(idleSettleTimeout).Element(sel)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}
