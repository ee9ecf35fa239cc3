// Package gcp builds client options shared by the Google API adapters.
package gcp

import (
	"strings"

	"google.golang.org/api/option"
)

// ClientOptions returns options authenticating with an inline service account
// key, a key file, or application default credentials when both are empty.
func ClientOptions(credentialsJSON, credentialsFile string, scopes ...string) []option.ClientOption {
	opts := []option.ClientOption{option.WithScopes(scopes...)}
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case strings.TrimSpace(credentialsFile) != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	return opts
}
