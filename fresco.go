package fresco

import _ "embed"

//go:embed .version
var Version string

//go:embed default_config.toml
var DefaultConfig string
