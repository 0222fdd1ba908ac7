// Package notify delivers run reports to a Telegram chat. Every send is
// fire-and-forget: delivery failures are logged and swallowed so a broken
// notifier can never change a run's terminal outcome.
package notify

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"
)

// Telegram sends HTML-formatted reports to a single chat, optionally with a
// screenshot attached as a photo.
type Telegram struct {
	bot     *tele.Bot
	chat    tele.Recipient
	log     zerolog.Logger
	limiter *rate.Limiter
}

// NewTelegram validates the token against the Bot API and returns a notifier
// bound to chatID.
func NewTelegram(token string, chatID int64, log zerolog.Logger) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: nil, // outbound-only, no update polling
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:     b,
		chat:    tele.ChatID(chatID),
		log:     log,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}, nil
}

// Startup announces that the bot is waiting for the next opening instant.
func (t *Telegram) Startup(target string) {
	t.send("🏕 <b>캠핑 예약 봇 시작</b>\n대기 중 → <b>" + target + "</b>\n해당 시각에 자동 예약을 시도합니다.")
}

// Success reports a completed reservation (or dry-run detection).
func (t *Telegram) Success(report string) {
	t.send("✅ <b>예약 성공!</b>\n\n" + report)
}

// Failure reports a terminal failure, attaching the evidence screenshot when
// one exists.
func (t *Telegram) Failure(reason, evidence string) {
	text := "❌ <b>예약 실패</b>\n\n사유: " + reason
	if evidence == "" {
		t.send(text)
		return
	}
	t.sendPhoto(text, evidence)
}

func (t *Telegram) send(text string) {
	if !t.limiter.Allow() {
		t.log.Warn().Msg("notification dropped by rate limit")
		return
	}
	if _, err := t.bot.Send(t.chat, text, tele.ModeHTML); err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
	}
}

// sendPhoto uploads the screenshot with the text as caption. Falls back to a
// text-only message when the file is missing or the upload fails.
func (t *Telegram) sendPhoto(caption, path string) {
	if _, err := os.Stat(path); err != nil {
		t.log.Warn().Str("path", path).Msg("screenshot not found, sending text only")
		t.send(caption)
		return
	}
	if !t.limiter.Allow() {
		t.log.Warn().Msg("notification dropped by rate limit")
		return
	}
	photo := &tele.Photo{File: tele.FromDisk(path), Caption: caption}
	if _, err := t.bot.Send(t.chat, photo, tele.ModeHTML); err != nil {
		t.log.Warn().Err(err).Msg("telegram photo send failed")
		t.send(caption + "\n(스크린샷 전송 실패)")
	}
}
