package core

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable entry in a conversation history. Seq is a
// monotonic order index assigned by the history buffer on append;
// replay order to the language model follows Seq.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Seq  uint64 `json:"seq"`
}
