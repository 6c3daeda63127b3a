package messages

import "time"

// Message is one text sent between two registered users. ReadAt stays nil
// until the recipient marks it read.
type Message struct {
	ID           string
	FromUsername string
	ToUsername   string
	Body         string
	SentAt       time.Time
	ReadAt       *time.Time
}

// Counterpart is the denormalized public info of the other party in a
// listing.
type Counterpart struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// Incoming is a message in a recipient's listing, with the sender attached.
type Incoming struct {
	ID     string
	Body   string
	SentAt time.Time
	ReadAt *time.Time
	From   Counterpart
}

// Outgoing is a message in a sender's listing, with the recipient attached.
type Outgoing struct {
	ID     string
	Body   string
	SentAt time.Time
	ReadAt *time.Time
	To     Counterpart
}
