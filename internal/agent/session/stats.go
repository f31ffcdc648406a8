package session

// TokenStats holds process-lifetime token accounting.
//
// LastInput and LastOutput describe the final API call of the most recent
// turn; LastInput is what the context-fullness display uses. Totals sum
// every call, including intermediate tool-loop calls. RequestCount counts
// completed turns, not API calls.
type TokenStats struct {
	LastInput    int64 `json:"last_input"`
	LastOutput   int64 `json:"last_output"`
	TotalInput   int64 `json:"total_input"`
	TotalOutput  int64 `json:"total_output"`
	RequestCount int64 `json:"request_count"`
}

// TurnUsage is the usage of one turn, accumulated over its API calls.
type TurnUsage struct {
	LastInput  int64 `json:"last_input"`
	LastOutput int64 `json:"last_output"`
	SumInput   int64 `json:"sum_input"`
	SumOutput  int64 `json:"sum_output"`
	Calls      int   `json:"calls"`
}

// AddCall folds one API call's usage into the turn.
func (u *TurnUsage) AddCall(input, output int64) {
	u.LastInput = input
	u.LastOutput = output
	u.SumInput += input
	u.SumOutput += output
	u.Calls++
}

// record applies a completed turn.
func (s *TokenStats) record(u TurnUsage) {
	s.LastInput = u.LastInput
	s.LastOutput = u.LastOutput
	s.TotalInput += u.SumInput
	s.TotalOutput += u.SumOutput
	s.RequestCount++
}

// clearLast zeroes the per-call fields and keeps the totals.
func (s *TokenStats) clearLast() {
	s.LastInput = 0
	s.LastOutput = 0
}
