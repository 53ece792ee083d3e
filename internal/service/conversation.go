package service

import (
	"strings"

	"dubbot/internal/core/domain"
)

// Button labels and commands understood by the bot.
const (
	CmdStart  = "/start"
	CmdCancel = "/cancel"

	BtnTranslate = "Translate Video"
	BtnStats     = "View Stats"
	BtnLanguages = "Set Source/Target Languages"
	BtnPremium   = "Premium Status"
	BtnBack      = "Back to Main Menu"

	BtnModeVideo = "Generate Video with Translated Audio"
	BtnModeAudio = "Only Translated Audio"
	BtnModeText  = "Translated Transcript Only"

	sourcePrefix = "Set Source:"
	targetPrefix = "Set Target:"
)

var (
	MainMenuKeyboard = [][]string{
		{BtnTranslate, BtnStats},
		{BtnLanguages, BtnPremium},
	}
	ModeKeyboard = [][]string{
		{BtnModeVideo},
		{BtnModeAudio, BtnModeText},
	}
	LanguageKeyboard = [][]string{
		{"Set Source: English", "Set Target: Russian"},
		{"Set Source: Russian", "Set Target: English"},
		{BtnBack},
	}
)

var modeLabels = map[string]domain.Mode{
	BtnModeVideo: domain.ModeVideo,
	BtnModeAudio: domain.ModeAudio,
	BtnModeText:  domain.ModeText,
}

var languageCodes = map[string]string{
	"english":   "en",
	"russian":   "ru",
	"kazakh":    "kk",
	"german":    "de",
	"french":    "fr",
	"spanish":   "es",
	"italian":   "it",
	"japanese":  "ja",
	"chinese":   "zh",
	"korean":    "ko",
	"arabic":    "ar",
	"ukrainian": "uk",
}

// Languages is a source/target language pair.
type Languages struct {
	Source string
	Target string
}

// Action is a side effect the bot performs after applying a Decision.
type Action int

const (
	ActionNone Action = iota
	ActionRegister
	ActionShowStats
	ActionShowPremium
	ActionRunJob
)

// Decision is the outcome of routing one message.
type Decision struct {
	Session domain.ConversationSession
	Replies []domain.Reply
	Action  Action
	Job     *domain.Job
	// Err is domain.ErrInvalidInput when the message was rejected in the current state.
	Err error
}

// Route applies text to sess. It has no side effects: everything that needs the
// store, the quota gate or the pipeline is returned as an Action.
func Route(sess domain.ConversationSession, text string, defaults Languages) Decision {
	text = strings.TrimSpace(text)
	d := Decision{Session: sess}

	switch {
	case text == CmdStart:
		d.Session = idle(sess)
		d.Action = ActionRegister
		d.Replies = menu("Welcome to the Video Translation Bot! Use the menu below to get started.")
		return d
	case text == CmdCancel || text == BtnBack:
		d.Session = idle(sess)
		d.Replies = menu("Main menu.")
		return d
	case text == BtnTranslate:
		d.Session = idle(sess)
		d.Session.State = domain.StateAwaitingURL
		d.Replies = say("Please send the video link (e.g., YouTube, VK, Vimeo).")
		return d
	case text == BtnStats:
		d.Action = ActionShowStats
		return d
	case text == BtnPremium:
		d.Action = ActionShowPremium
		return d
	case text == BtnLanguages:
		d.Replies = []domain.Reply{{Text: "Choose a language to set:", Keyboard: LanguageKeyboard}}
		return d
	case strings.HasPrefix(text, sourcePrefix), strings.HasPrefix(text, targetPrefix):
		return setLanguage(d, text)
	}

	switch sess.State {
	case domain.StateAwaitingURL:
		return submitURL(d, text, defaults)
	case domain.StateAwaitingMode:
		return submitMode(d, text)
	}
	d.Replies = menu("Please use the menu below.")
	return d
}

func submitURL(d Decision, text string, defaults Languages) Decision {
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		d.Err = domain.ErrInvalidInput
		d.Replies = say("Invalid URL. Please send a valid video link.")
		return d
	}
	d.Session.URL = text
	if d.Session.SourceLang == "" {
		d.Session.SourceLang = defaults.Source
	}
	if d.Session.TargetLang == "" {
		d.Session.TargetLang = defaults.Target
	}
	d.Session.State = domain.StateAwaitingMode
	d.Replies = []domain.Reply{{Text: "Select the processing mode:", Keyboard: ModeKeyboard}}
	return d
}

func submitMode(d Decision, text string) Decision {
	mode, ok := modeLabels[text]
	if !ok {
		d.Err = domain.ErrInvalidInput
		d.Replies = []domain.Reply{{Text: "Invalid choice. Please select a valid processing mode.", Keyboard: ModeKeyboard}}
		return d
	}
	d.Job = &domain.Job{
		SourceURL:  d.Session.URL,
		SourceLang: d.Session.SourceLang,
		TargetLang: d.Session.TargetLang,
		Mode:       mode,
	}
	d.Action = ActionRunJob
	// The session is back to Idle before the pipeline starts, whatever its outcome.
	d.Session = idle(d.Session)
	return d
}

func setLanguage(d Decision, text string) Decision {
	_, value, found := strings.Cut(text, ": ")
	lang := NormalizeLanguage(value)
	if !found || lang == "" {
		d.Err = domain.ErrInvalidInput
		d.Replies = say("Please name a language, for example \"Set Target: Russian\".")
		return d
	}
	if strings.HasPrefix(text, sourcePrefix) {
		d.Session.SourceLang = lang
		d.Replies = say("Source language set to " + lang + ".")
	} else {
		d.Session.TargetLang = lang
		d.Replies = say("Target language set to " + lang + ".")
	}
	return d
}

// NormalizeLanguage maps a language name to its code. Unknown names are lower-cased as given.
func NormalizeLanguage(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return name
}

// idle drops the collected job fields and keeps the language preferences.
func idle(sess domain.ConversationSession) domain.ConversationSession {
	return domain.ConversationSession{
		State:      domain.StateIdle,
		SourceLang: sess.SourceLang,
		TargetLang: sess.TargetLang,
	}
}

func say(text string) []domain.Reply {
	return []domain.Reply{{Text: text}}
}

func menu(text string) []domain.Reply {
	return []domain.Reply{{Text: text, Keyboard: MainMenuKeyboard}}
}
