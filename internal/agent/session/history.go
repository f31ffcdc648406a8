package session

// Role of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one immutable conversation turn.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// History is an ordered conversation log holding at most max entries.
// When full, the oldest entries are evicted first. It does no locking;
// State guards it.
type History struct {
	entries []Entry
	max     int
}

// NewHistory returns an empty history capped at max entries.
func NewHistory(max int) *History {
	if max <= 0 {
		max = 20
	}
	return &History{max: max}
}

// Append adds e and trims to the cap.
func (h *History) Append(e Entry) {
	h.entries = append(h.entries, e)
	h.trim()
}

func (h *History) trim() {
	if over := len(h.entries) - h.max; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(h.entries, h.entries[over:])
		clear(h.entries[n:])
		h.entries = h.entries[:n]
	}
}

// Entries returns a copy of the log, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Max returns the cap.
func (h *History) Max() int {
	return h.max
}

// Clear removes every entry.
func (h *History) Clear() {
	h.entries = nil
}
