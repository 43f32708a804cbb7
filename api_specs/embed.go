// Package api_specs embeds the generated OpenAPI document served at /api-specs.
package api_specs

import "embed"

//go:generate go tool swag init --dir ../,../internal/http/roomhandler --generalInfo main.go --parseInternal --outputTypes json --output .

//go:embed swagger.json
var FS embed.FS
