package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// ImapSettings holds the connection parameters for the monitored inbox.
type ImapSettings struct {
	Address  string // host:port, TLS
	Username string
	Password string
	Mailbox  string
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// GetImapSettings reads inbox settings from env. The mail processors call
// this on every cycle so a rotated password is picked up without a restart.
func GetImapSettings() (ImapSettings, error) {
	s := ImapSettings{
		Address:  os.Getenv("IMAP_ADDRESS"),
		Username: os.Getenv("IMAP_USERNAME"),
		Password: os.Getenv("IMAP_PASSWORD"),
		Mailbox:  os.Getenv("IMAP_MAILBOX"),
	}
	if s.Mailbox == "" {
		s.Mailbox = "INBOX"
	}
	if s.Address == "" || s.Username == "" || s.Password == "" {
		return s, errors.New("IMAP_ADDRESS/IMAP_USERNAME/IMAP_PASSWORD not set")
	}
	return s, nil
}
