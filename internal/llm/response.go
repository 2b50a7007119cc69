package llm

// Conversation roles, as the generative backend names them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one entry of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Part is one piece of a multi-part reply.
type Part struct {
	Text string `json:"text"`
}

// Candidate is one alternative reply.
type Candidate struct {
	Content string `json:"content"`
}

// Response carries generated text in whichever shape the backend used.
// Any of the fields may be empty.
type Response struct {
	Parts      []Part      `json:"parts,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Text       string      `json:"text,omitempty"`
}
