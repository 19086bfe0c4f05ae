package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookie = "flash"

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

// Message is a notice shown once on the next rendered page.
type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func Success(text string) Message {
	return Message{Level: LevelSuccess, Text: text}
}

func Error(text string) Message {
	return Message{Level: LevelError, Text: text}
}

// SetFlash stores messages in a cookie to be shown after a redirect.
func SetFlash(w http.ResponseWriter, messages ...Message) {
	data, err := json.Marshal(messages)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending messages and clears the cookie.
func PopFlash(w http.ResponseWriter, r *http.Request) []Message {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	data, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil
	}
	return messages
}
