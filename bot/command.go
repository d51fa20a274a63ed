package bot

// CommandKind enumerates the bot's command surface. Any keyword outside the built-in
// set classifies as KindSpeak: the keyword names an identity and the body is relayed
// through it.
type CommandKind int

const (
	KindHelp CommandKind = iota
	KindList
	KindRegister
	KindForget
	KindSwitch
	KindStop
	KindSpeak
)

// String returns the user-facing command name.
func (k CommandKind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindList:
		return "list"
	case KindRegister:
		return "register"
	case KindForget:
		return "forget"
	case KindSwitch:
		return "switch"
	case KindStop:
		return "stop"
	default:
		return "speak"
	}
}

// Command is a parsed command line. For register/forget/switch the second-level parse
// of the body fills Keyword (and Nick for register); when that parse fails, Malformed
// is set and the handler reports it to the user instead of acting.
type Command struct {
	Kind      CommandKind
	Keyword   string // identity keyword (register/forget/switch/speak)
	Nick      string // register: display name for the new identity
	Body      string // speak: text to relay
	Malformed bool
}

// Classify turns raw prefixed text into a Command. It returns ok=false when the text
// reduces to nothing after prefix stripping; malformed subcommand bodies still return
// ok=true with Malformed set, because that outcome is user-visible.
func Classify(prefix, raw string) (Command, bool) {
	keyword, body, ok := ParseCommand(prefix, raw)
	if !ok {
		return Command{}, false
	}

	switch keyword {
	case "help":
		return Command{Kind: KindHelp}, true
	case "list":
		return Command{Kind: KindList}, true
	case "register":
		sub, nick, ok := ParseCommand(prefix, body)
		if !ok {
			return Command{Kind: KindRegister, Malformed: true}, true
		}
		return Command{Kind: KindRegister, Keyword: sub, Nick: nick}, true
	case "forget":
		sub, _, ok := ParseCommand(prefix, body)
		if !ok {
			return Command{Kind: KindForget, Malformed: true}, true
		}
		return Command{Kind: KindForget, Keyword: sub}, true
	case "switch":
		sub, _, ok := ParseCommand(prefix, body)
		if !ok {
			return Command{Kind: KindSwitch, Malformed: true}, true
		}
		return Command{Kind: KindSwitch, Keyword: sub}, true
	case "stop":
		return Command{Kind: KindStop}, true
	default:
		return Command{Kind: KindSpeak, Keyword: keyword, Body: body}, true
	}
}
