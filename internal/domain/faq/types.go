package faq

// Entry is a single curated question/answer pair.
type Entry struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Outcome classifies how a match attempt ended.
type Outcome string

const (
	// OutcomeMatched means the best corpus entry cleared the threshold.
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch means the best score stayed below the threshold.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeFailed means encoding or comparison failed.
	OutcomeFailed Outcome = "failed"
)

// MatchResult is produced per query and owned by the caller.
type MatchResult struct {
	Answer          string  `json:"answer"`
	Score           float64 `json:"score"`
	MatchedQuestion *string `json:"matched_question"`
	Outcome         Outcome `json:"outcome"`
	// Index is the corpus position of the best entry, -1 when nothing was compared.
	Index int `json:"index"`
}

// Matched reports whether the result carries a corpus answer.
func (r MatchResult) Matched() bool {
	return r.Outcome == OutcomeMatched
}

// Request is the transport-level ask payload.
type Request struct {
	Query string `json:"query"`
}

// Response is returned to the HTTP transport.
type Response struct {
	Response        string  `json:"response"`
	Confidence      float64 `json:"confidence"`
	MatchedQuestion *string `json:"matched_question"`
	Outcome         Outcome `json:"outcome"`
	DurationMs      int64   `json:"durationMs,omitempty"`
}
