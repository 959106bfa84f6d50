package chat

import (
	"regexp"
	"strings"
)

// ErrorKind is the user-facing category of a failed chat turn.
type ErrorKind int

const (
	KindDefault ErrorKind = iota
	KindAuthentication
	KindSafety
	KindNetwork
	KindServer
)

// CancelledMessage is returned as the response of a turn the caller cancelled.
const CancelledMessage = "No problem, I've stopped there. I'm still here whenever you want to pick this back up."

var fallbackMessages = map[ErrorKind]string{
	KindSafety:         "I appreciate your openness with me. That's a topic I think might be better addressed in a different way. I'm here to support your wellbeing, so maybe we could explore what's behind that question? I'm curious about what's on your mind today.",
	KindDefault:        "I seem to be having a moment here - my thoughts got a bit jumbled. Would you mind sharing that again, maybe in a slightly different way? I really want to understand what you're going through.",
	KindNetwork:        "It looks like we're having trouble staying connected right now. Technology, right? Would you mind giving it another try in a minute? I'm looking forward to continuing our conversation.",
	KindServer:         "My systems are feeling a bit overwhelmed at the moment - kind of like how we all get sometimes. Could we pick this up again in a little while? I'll be here when you're ready.",
	KindAuthentication: "I'm having some trouble accessing my full capabilities right now. It's a bit like being locked out of your house - frustrating! Our team is looking into this, and I appreciate your patience.",
}

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindSafety:
		return "safety"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "default"
	}
}

// Message returns the conversational fallback shown in place of a reply.
func (k ErrorKind) Message() string {
	if msg, ok := fallbackMessages[k]; ok {
		return msg
	}
	return fallbackMessages[KindDefault]
}

type rule struct {
	kind    ErrorKind
	codes   *regexp.Regexp
	phrases []string
}

// rules are checked in order; the first match wins.
var rules = []rule{
	{
		kind:  KindAuthentication,
		codes: regexp.MustCompile(`\b(401|403)\b`),
		phrases: []string{
			"unauthorized", "unauthenticated", "invalid credentials",
			"api key not valid", "invalid api key", "permission denied", "forbidden",
		},
	},
	{
		kind: KindSafety,
		phrases: []string{
			"safety", "blocked", "prohibited content", "content policy", "content filter",
		},
	},
	{
		kind: KindNetwork,
		phrases: []string{
			"network", "connection", "no such host", "dial tcp", "timeout",
			"deadline exceeded", "unexpected eof", "broken pipe",
		},
	},
	{
		kind:  KindServer,
		codes: regexp.MustCompile(`\b(500|502|503|504)\b`),
		phrases: []string{
			"server", "unavailable", "overloaded",
		},
	},
}

// Classify maps a pipeline failure to an ErrorKind by matching its message.
// Status codes match as whole numbers so a port like :5001 is not a 500.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindDefault
	}
	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		if r.matches(msg) {
			return r.kind
		}
	}
	return KindDefault
}

func (r rule) matches(msg string) bool {
	if r.codes != nil && r.codes.MatchString(msg) {
		return true
	}
	for _, p := range r.phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
