package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/auctionhouse-backend/pkg/config"
)

// ClientOptions resolves credentials for Google clients. Inline JSON wins over a
// credentials file; with neither, application default credentials apply.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}
