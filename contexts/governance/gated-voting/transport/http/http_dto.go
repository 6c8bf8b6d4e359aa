package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PollItem struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ListPollsResponse struct {
	Items []PollItem `json:"items"`
}

type SubmitMessageRequest struct {
	Text string `json:"text"`
}

// ReplyResponse mirrors one conversation step. Link is only set when a vote
// was granted.
type ReplyResponse struct {
	UserID   string `json:"user_id"`
	Outcome  string `json:"outcome"`
	Stage    string `json:"stage"`
	Text     string `json:"text,omitempty"`
	PollName string `json:"poll_name,omitempty"`
	Link     string `json:"link,omitempty"`
}

type UserVotesResponse struct {
	UserID  string   `json:"user_id"`
	PollIDs []string `json:"poll_ids"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
}
