package domain

// Exchange is the outcome of one /api/chat request as seen by the backend.
// It never carries message text.
type Exchange struct {
	PK            string
	SK            string
	ID            string
	Status        string
	ErrorCode     string
	Model         string
	MessageLength int
	LatencyMillis int64
	CreatedAt     string
	TTL           int64
}
