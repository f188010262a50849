package hxfaces

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pthm/hxfaces/lib/encoding"
)

// FlashCookie carries messages across a redirect.
const FlashCookie = "hxfaces-flash"

// Flash keeps the messages of a request alive for the request that follows
// its redirect, so a "Saved!" notice survives post-redirect-get.
//
// Messages are sealed into a short-lived cookie with the application codec
// and restored, then cleared, during the next RESTORE_VIEW.
type Flash struct {
	codec *encoding.Codec
}

// NewFlash returns a Flash sealing cookies with codec.
func NewFlash(codec *encoding.Codec) *Flash {
	return &Flash{codec: codec}
}

// Keep stores the request's messages for the next request.
func (f *Flash) Keep(rc *RequestContext) error {
	msgs := rc.Messages("")
	if len(msgs) == 0 {
		return nil
	}
	st := make(encoding.State, len(msgs))
	for i, m := range msgs {
		st[strconv.Itoa(i)] = map[string]any{
			"severity": int64(m.Severity),
			"client":   m.ClientID,
			"summary":  m.Summary,
			"detail":   m.Detail,
		}
	}
	token, err := f.codec.Seal(st)
	if err != nil {
		return err
	}
	http.SetCookie(rc.Response, &http.Cookie{
		Name:     FlashCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Restore moves kept messages into rc and clears the cookie.
func (f *Flash) Restore(rc *RequestContext) error {
	c, err := rc.Request.Cookie(FlashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(rc.Response, &http.Cookie{Name: FlashCookie, Path: "/", MaxAge: -1})

	st, err := f.codec.Open(c.Value)
	if err != nil {
		return fmt.Errorf("flash: %w", err)
	}
	for i := 0; i < len(st); i++ {
		m, ok := st[strconv.Itoa(i)]
		if !ok {
			break
		}
		msg := Message{Severity: severityOf(m["severity"])}
		msg.ClientID, _ = m["client"].(string)
		msg.Summary, _ = m["summary"].(string)
		msg.Detail, _ = m["detail"].(string)
		rc.AddMessage(msg)
	}
	return nil
}

func severityOf(v any) Severity {
	switch n := v.(type) {
	case int64:
		return Severity(n)
	case uint64:
		return Severity(n)
	case int:
		return Severity(n)
	}
	return SeverityInfo
}
