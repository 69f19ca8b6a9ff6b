package assets

import (
	_ "embed"
)

// Catalog is the demo catalog served by the mock server.
//
//go:embed catalog.yaml
var Catalog []byte
