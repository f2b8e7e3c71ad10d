package imap

// LabelPrefix is the parent folder under which Proton Bridge exposes labels.
const LabelPrefix = "Labels/"

const defaultFolder = "INBOX"

type MailboxInfo struct {
	Name       string   `json:"name"`
	Delimiter  string   `json:"delimiter"`
	Attributes []string `json:"attributes"`
}

// LabelInfo is a Proton Mail label and the folder that holds its messages.
type LabelInfo struct {
	Name     string `json:"name"`
	FullPath string `json:"full_path"`
}

// Options describe how to reach and log in to the IMAP server.
type Options struct {
	Host     string
	Port     int
	Email    string
	Password string
	// InsecureSkipVerify accepts the bridge's self-signed certificate.
	InsecureSkipVerify bool
}
