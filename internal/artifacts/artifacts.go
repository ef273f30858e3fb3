// Package artifacts embeds the files patchfs writes on first use.
package artifacts

import _ "embed"

//go:embed global/settings.yaml
var GlobalSettings []byte
