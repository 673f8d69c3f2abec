// Package builtin holds the tools served by `relay tools`.
package builtin

import "github.com/wilhg/relay/pkg/tool"

// Config carries what the built-in tools need from the environment.
type Config struct {
	// OutputDir receives generated decks.
	OutputDir string
	// SearchAPIKey authenticates against the search provider.
	SearchAPIKey string
	// SearchURL overrides the search provider base URL.
	SearchURL string
}

// Register adds every built-in tool to r.
func Register(r *tool.Registry, cfg Config) error {
	for _, t := range []tool.Tool{
		PresentationTool{Dir: cfg.OutputDir},
		SearchTool{APIKey: cfg.SearchAPIKey, BaseURL: cfg.SearchURL},
	} {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
