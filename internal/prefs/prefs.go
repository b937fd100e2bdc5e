package prefs

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/health-assistant/internal/locale"
)

const (
	KeyBotName  = "chatBotName"
	KeyLanguage = "appLanguage"

	DefaultBotName = "AI Health Assistant"
	maxBotNameLen  = 64
)

var (
	ErrUnsupportedLanguage = errors.New("prefs: unsupported language")
	ErrBotNameTooLong      = errors.New("prefs: chatbot name too long")
)

type Preferences struct {
	BotName  string `json:"chatBotName"`
	Language string `json:"appLanguage"`
}

func Defaults() Preferences {
	return Preferences{BotName: DefaultBotName, Language: locale.Default}
}

// Update is a partial change; nil fields are left alone.
type Update struct {
	BotName  *string `json:"chatBotName"`
	Language *string `json:"appLanguage"`
}

// Apply validates u and merges it into p.
func (p Preferences) Apply(u Update) (Preferences, error) {
	if u.BotName != nil {
		name := strings.TrimSpace(*u.BotName)
		if utf8.RuneCountInString(name) > maxBotNameLen {
			return p, ErrBotNameTooLong
		}
		if name == "" {
			name = DefaultBotName
		}
		p.BotName = name
	}
	if u.Language != nil {
		code := strings.ToLower(strings.TrimSpace(*u.Language))
		if !locale.IsSupported(code) {
			return p, ErrUnsupportedLanguage
		}
		p.Language = code
	}
	return p, nil
}

// fromValues fills defaults for missing or invalid stored values.
func fromValues(values map[string]string) Preferences {
	p := Defaults()
	if v := strings.TrimSpace(values[KeyBotName]); v != "" {
		p.BotName = v
	}
	if v := values[KeyLanguage]; locale.IsSupported(v) {
		p.Language = locale.Normalize(v)
	}
	return p
}

func (p Preferences) values() map[string]string {
	return map[string]string{KeyBotName: p.BotName, KeyLanguage: p.Language}
}

// Store persists preferences per profile.
type Store interface {
	Get(ctx context.Context, owner string) (Preferences, error)
	Put(ctx context.Context, owner string, p Preferences) error
}
