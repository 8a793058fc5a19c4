package wecom

// AccountConfig carries the per-account credentials for one callback channel.
// Loaded from the environment for single-account deployments; multi-account
// setups supply these through an AccountProvider implementation.
type AccountConfig struct {
	Token          string `env:"WECOM_TOKEN"`
	EncodingAESKey string `env:"WECOM_ENCODING_AES_KEY"`
	CorpID         string `env:"WECOM_CORP_ID"`
	CorpSecret     string `env:"WECOM_CORP_SECRET"`
	AgentID        int64  `env:"WECOM_AGENT_ID"`
}

// CallbackReady reports whether the account can serve callback traffic.
// Token and EncodingAESKey are the minimum for signature verification and
// envelope decryption.
func (c AccountConfig) CallbackReady() bool {
	return c.Token != "" && c.EncodingAESKey != ""
}
