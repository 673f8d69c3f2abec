package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wilhg/relay/pkg/tool"
)

const defaultDeckName = "presentation.md"

// Slide is one content slide of a deck.
type Slide struct {
	Title        string   `json:"title"`
	Content      string   `json:"content,omitempty"`
	BulletPoints []string `json:"bullet_points,omitempty"`
}

type presentationArgs struct {
	Title    string  `json:"title"`
	Slides   []Slide `json:"slides"`
	Filename string  `json:"filename,omitempty"`
}

// PresentationTool writes a Marp-flavoured Markdown deck: a title slide
// followed by one slide per entry. Files land inside Dir only.
type PresentationTool struct{ Dir string }

func (t PresentationTool) Describe() tool.Descriptor {
	in := []byte(`{
  "type": "object",
  "properties": {
    "title": {"type": "string", "description": "The title for the presentation"},
    "slides": {
      "type": "array",
      "description": "Array of slides to create",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string", "description": "Title of the slide"},
          "content": {"type": "string", "description": "Main content/body text for the slide"},
          "bullet_points": {"type": "array", "description": "Optional bullet points", "items": {"type": "string"}}
        },
        "required": ["title"]
      }
    },
    "filename": {"type": "string", "description": "Filename to save as (default: presentation.md)"}
  },
  "required": ["title", "slides"]
}`)
	return tool.Descriptor{
		Name:        "create_presentation",
		Description: "Creates a new presentation with a title slide and one slide per entry",
		InputSchema: in,
		Permissions: []tool.Permission{{Name: "fs:write"}},
	}
}

func (t PresentationTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.Dir == "" {
		return "", errors.New("no output directory configured")
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	var in presentationArgs
	if err := json.Unmarshal(b, &in); err != nil {
		return "", err
	}
	name, err := deckName(in.Filename)
	if err != nil {
		return "", err
	}
	root, err := os.OpenRoot(t.Dir)
	if err != nil {
		return "", err
	}
	defer func() { _ = root.Close() }()
	f, err := root.Create(name)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(RenderDeck(in.Title, in.Slides)); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created presentation '%s' with title '%s' and %d slides", name, in.Title, len(in.Slides)), nil
}

// deckName sanitizes a caller-provided filename and forces the .md extension.
func deckName(p string) (string, error) {
	if p == "" {
		return defaultDeckName, nil
	}
	if filepath.IsAbs(p) || filepath.Clean(p) != p || strings.Contains(p, "..") || strings.ContainsAny(p, `/\`) {
		return "", errors.New("invalid filename")
	}
	base := strings.TrimSuffix(p, filepath.Ext(p))
	if strings.TrimSpace(base) == "" {
		return "", fmt.Errorf("invalid filename %q: empty name", p)
	}
	return base + ".md", nil
}

// RenderDeck renders the deck as Markdown with "---" slide separators.
func RenderDeck(title string, slides []Slide) string {
	var b strings.Builder
	b.WriteString("---\nmarp: true\n---\n\n# ")
	b.WriteString(title)
	b.WriteString("\n")
	for _, s := range slides {
		b.WriteString("\n---\n\n## ")
		b.WriteString(s.Title)
		b.WriteString("\n")
		if s.Content != "" {
			b.WriteString("\n")
			b.WriteString(s.Content)
			b.WriteString("\n")
		}
		if len(s.BulletPoints) > 0 {
			b.WriteString("\n")
			for _, bp := range s.BulletPoints {
				b.WriteString("- ")
				b.WriteString(bp)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
