package domain

// Attachment is a file carried by an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is one outbound notification to a single recipient.
type Message struct {
	To          string
	Name        string
	Subject     string
	HTML        string
	Attachments []Attachment
}
