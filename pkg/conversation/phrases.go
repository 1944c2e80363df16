package conversation

// Phrases are the fixed lines the interpreter speaks on its own behalf.
type Phrases struct {
	YouSee        string `json:"you_see" yaml:"you_see"`
	WhatsYourName string `json:"whats_your_name" yaml:"whats_your_name"`
	Pleasure      string `json:"pleasure" yaml:"pleasure"`
	IfSaySo       string `json:"if_say_so" yaml:"if_say_so"`
	CantJoin1     string `json:"cant_join_1" yaml:"cant_join_1"`
	CantJoin2     string `json:"cant_join_2" yaml:"cant_join_2"`
	CannotHelp    string `json:"cannot_help" yaml:"cannot_help"`
	MyNameIs      string `json:"my_name_is" yaml:"my_name_is"`
	WhatYouSay    string `json:"what_you_say" yaml:"what_you_say"`
	YourInterest  string `json:"your_interest" yaml:"your_interest"`
	YouRespond    string `json:"you_respond" yaml:"you_respond"`
	IAmCalled     string `json:"i_am_called" yaml:"i_am_called"`
}

// DefaultPhrases returns the English phrase set.
func DefaultPhrases() Phrases {
	return Phrases{
		YouSee:        "You see",
		WhatsYourName: "What is thy name?",
		Pleasure:      "A pleasure!",
		IfSaySo:       "If thou sayest so...",
		CantJoin1:     "Thou hast no room for me in thy party! ",
		CantJoin2:     "Seek me again if one of thy members doth leave thee.\n",
		CannotHelp:    "I cannot help thee with that.",
		MyNameIs:      "My name is",
		WhatYouSay:    "What didst thou say?",
		YourInterest:  "Your interest:",
		YouRespond:    "You respond:",
		IAmCalled:     "I am called",
	}
}

// Merge returns p with every empty phrase taken from base.
func (p Phrases) Merge(base Phrases) Phrases {
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return Phrases{
		YouSee:        pick(p.YouSee, base.YouSee),
		WhatsYourName: pick(p.WhatsYourName, base.WhatsYourName),
		Pleasure:      pick(p.Pleasure, base.Pleasure),
		IfSaySo:       pick(p.IfSaySo, base.IfSaySo),
		CantJoin1:     pick(p.CantJoin1, base.CantJoin1),
		CantJoin2:     pick(p.CantJoin2, base.CantJoin2),
		CannotHelp:    pick(p.CannotHelp, base.CannotHelp),
		MyNameIs:      pick(p.MyNameIs, base.MyNameIs),
		WhatYouSay:    pick(p.WhatYouSay, base.WhatYouSay),
		YourInterest:  pick(p.YourInterest, base.YourInterest),
		YouRespond:    pick(p.YouRespond, base.YouRespond),
		IAmCalled:     pick(p.IAmCalled, base.IAmCalled),
	}
}
