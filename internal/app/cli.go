package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("host", "H", "", "Host for the HTTP API")
	flags.IntP("port", "p", 0, "Port for the HTTP API")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	flags.String("stream-addr", "", "Redis address for the ingestion stream")
	flags.String("stream-name", "", "Ingestion stream name")
	flags.String("stream-group", "", "Consumer group name")
	flags.StringP("index-dir", "d", "", "Index storage directory")
	flags.String("synonyms", "", "Path to a synonym rules file")
}
