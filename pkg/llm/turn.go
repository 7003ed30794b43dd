package llm

import "time"

// Exchange is one completed request/response pair of a conversation: the
// turns that were sent and the assistant turn that came back.
type Exchange struct {
	Model     string        `json:"model"`
	Endpoint  string        `json:"endpoint"`
	Sent      []Turn        `json:"sent"`
	Reply     Turn          `json:"reply"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Request returns the last turn that was sent, i.e. the one being answered.
func (e *Exchange) Request() Turn {
	if len(e.Sent) == 0 {
		return Turn{}
	}
	return e.Sent[len(e.Sent)-1]
}
