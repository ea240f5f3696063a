package proto

// Inbound is a chat frame coming from the client.
// Anything that does not decode into it, or decodes with an unusable
// message field, is dropped without a response.
type Inbound struct {
	Message string `json:"message"`
}

// Outbound is a chat frame sent to room members.
type Outbound struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}
