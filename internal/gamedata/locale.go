package gamedata

import (
	"errors"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
)

// Message ids used in active.<lang>.yaml locale files.
const (
	MsgYouSee        = "you_see"
	MsgWhatsYourName = "whats_your_name"
	MsgPleasure      = "pleasure"
	MsgIfSaySo       = "if_say_so"
	MsgCantJoin1     = "cant_join_1"
	MsgCantJoin2     = "cant_join_2"
	MsgCannotHelp    = "cannot_help"
	MsgMyNameIs      = "my_name_is"
	MsgWhatYouSay    = "what_you_say"
	MsgYourInterest  = "your_interest"
	MsgYouRespond    = "you_respond"
	MsgIAmCalled     = "i_am_called"
)

func phraseFields(p *conversation.Phrases) map[string]*string {
	return map[string]*string{
		MsgYouSee:        &p.YouSee,
		MsgWhatsYourName: &p.WhatsYourName,
		MsgPleasure:      &p.Pleasure,
		MsgIfSaySo:       &p.IfSaySo,
		MsgCantJoin1:     &p.CantJoin1,
		MsgCantJoin2:     &p.CantJoin2,
		MsgCannotHelp:    &p.CannotHelp,
		MsgMyNameIs:      &p.MyNameIs,
		MsgWhatYouSay:    &p.WhatYouSay,
		MsgYourInterest:  &p.YourInterest,
		MsgYouRespond:    &p.YouRespond,
		MsgIAmCalled:     &p.IAmCalled,
	}
}

// LoadPhrases overrides base with translations for lang found in the
// active.*.yaml files under dir. Messages a locale does not define keep
// their base text. An empty dir returns base unchanged.
func LoadPhrases(dir, lang string, base conversation.Phrases) (conversation.Phrases, error) {
	if dir == "" {
		return base, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return base, pkgerrors.Wrapf(err, "invalid language %q", lang)
	}

	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, err := filepath.Glob(filepath.Join(dir, "active.*.yaml"))
	if err != nil {
		return base, pkgerrors.Wrap(err, "failed to list locale files")
	}
	for _, f := range files {
		if _, err := bundle.LoadMessageFile(f); err != nil {
			return base, pkgerrors.Wrapf(err, "failed to load locale %s", f)
		}
	}

	localizer := i18n.NewLocalizer(bundle, tag.String())
	out := base
	for id, field := range phraseFields(&out) {
		text, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: id})
		if err != nil {
			var notFound *i18n.MessageNotFoundErr
			if errors.As(err, &notFound) {
				continue
			}
			return base, pkgerrors.Wrapf(err, "failed to localize %s", id)
		}
		*field = text
	}
	return out, nil
}
