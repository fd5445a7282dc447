package protocol

import "strings"

// Kind tags the variant of a parsed Command.
type Kind int

const (
	Unknown Kind = iota
	On
	Off
	Status
	Info
	Help
	Exit
	TemperatureQuery
)

var kindNames = map[Kind]string{
	Unknown:          "unknown",
	On:               "on",
	Off:              "off",
	Status:           "status",
	Info:             "info",
	Help:             "help",
	Exit:             "exit",
	TemperatureQuery: "temperature",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Socket protocol keywords
const (
	KeywordOn     = "on"
	KeywordOff    = "off"
	KeywordStatus = "status"
	KeywordInfo   = "info"
	KeywordHelp   = "help"
	KeywordExit   = "exit"
)

var keywords = []string{
	KeywordOn,
	KeywordOff,
	KeywordStatus,
	KeywordInfo,
	KeywordHelp,
	KeywordExit,
}

var keywordKinds = map[string]Kind{
	KeywordOn:     On,
	KeywordOff:    Off,
	KeywordStatus: Status,
	KeywordInfo:   Info,
	KeywordHelp:   Help,
	KeywordExit:   Exit,
}

// Keywords returns the socket protocol keywords in the order help lists them.
func Keywords() []string {
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}

// Command is one parsed request. Raw holds the trimmed request text, which is
// the payload of an Unknown command.
type Command struct {
	Kind Kind
	Raw  string
}

func (c Command) String() string {
	if c.Kind == Unknown || c.Kind == TemperatureQuery {
		return c.Raw
	}

	return c.Kind.String()
}

// Parse turns one line of client input into a Command. It never fails,
// anything that isn't an exact keyword becomes Unknown.
func Parse(raw string) Command {
	text := strings.TrimSpace(raw)

	if kind, ok := keywordKinds[text]; ok {
		return Command{Kind: kind, Raw: text}
	}

	return Command{Kind: Unknown, Raw: text}
}
