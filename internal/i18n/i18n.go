// Package i18n localizes user-facing CLI and TUI strings. English and
// Finnish are built in; answers from the assistant itself follow the
// question's language and are not routed through here.
package i18n

import (
	"fmt"
	"os"
	"strings"
)

// Supported languages.
const (
	LangEN = "en"
	LangFI = "fi"
)

// currentLang holds the active language.
var currentLang = LangEN

// messages stores all translations, keyed by language then message key.
var messages = make(map[string]map[string]string)

// Init sets the active language. Unrecognized values fall back to
// HAKU_LANG, then to English.
func Init(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))

	switch lang {
	case "en", "en-us", "en-gb", "english":
		currentLang = LangEN
	case "fi", "fi-fi", "finnish", "suomi":
		currentLang = LangFI
	default:
		if envLang := os.Getenv("HAKU_LANG"); envLang != "" && !strings.EqualFold(envLang, lang) {
			Init(envLang)
			return
		}
		currentLang = LangEN
	}

	loadMessages()
}

// SetLanguage changes the active language.
func SetLanguage(lang string) {
	Init(lang)
}

// Language returns the active language code.
func Language() string {
	return currentLang
}

// T returns the translation for key in the active language, falling back
// to English and finally to the key itself.
func T(key string) string {
	if msg, ok := messages[currentLang][key]; ok {
		return msg
	}
	if msg, ok := messages[LangEN][key]; ok {
		return msg
	}
	return key
}

// Sprintf returns the translated message formatted with args.
func Sprintf(key string, args ...any) string {
	return fmt.Sprintf(T(key), args...)
}

func loadMessages() {
	messages[LangEN] = make(map[string]string)
	messages[LangFI] = make(map[string]string)

	loadEnglishMessages()
	loadFinnishMessages()
}

// Supported returns the supported language codes.
func Supported() []string {
	return []string{LangEN, LangFI}
}

// IsSupported reports whether lang is a supported language code.
func IsSupported(lang string) bool {
	lang = strings.ToLower(strings.TrimSpace(lang))
	for _, supported := range Supported() {
		if strings.EqualFold(lang, supported) {
			return true
		}
	}
	return false
}

func init() {
	if envLang := os.Getenv("HAKU_LANG"); envLang != "" {
		Init(envLang)
	} else {
		Init(LangEN)
	}
}
