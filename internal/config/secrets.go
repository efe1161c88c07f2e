package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by
// "***". Use this when logging or printing the active configuration.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.OddsAPI.APIKey)

	redact(&out.Polymarket.Signature)
	redact(&out.Polymarket.APIKey)
	redact(&out.Polymarket.APISecret)
	redact(&out.Polymarket.Passphrase)
	redact(&out.Polymarket.PrivateKey)
	redact(&out.Polymarket.KeyPassword)

	redact(&out.Lambda.APIKey)

	redact(&out.Database.DSN)
	redact(&out.Database.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Matching.SharpBooks = cloneStrings(cfg.Matching.SharpBooks)
	out.Matching.Sports = cloneStrings(cfg.Matching.Sports)
	out.Server.CORSOrigins = cloneStrings(cfg.Server.CORSOrigins)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
