package blogsync

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
	"gopkg.in/yaml.v3"
)

// Draft is the client-local, in-progress post the authoring wizard works on.
// It persists across wizard steps and process restarts; overwrites are
// last-write-wins. Content holds the body as markdown source.
type Draft struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Content     string    `json:"content"`
	CardType    CardType  `json:"postType,omitempty"`
	Updated     time.Time `json:"updatedAt,omitempty"`
}

// FieldErrors maps a field name to its validation message, for inline
// per-field rendering.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+fe[field])
	}
	return strings.Join(parts, "; ")
}

// Check validates the compose-step schema and returns one message per
// failing field. An empty result means the draft may advance.
func (d *Draft) Check() FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(d.Title) == "" {
		fe["title"] = "set a title of post"
	}
	if strings.TrimSpace(d.Description) == "" {
		fe["description"] = "set a description of post"
	}
	if !d.Category.Valid() {
		fe["category"] = "select a category"
	}
	if strings.TrimSpace(d.Content) == "" {
		fe["content"] = "write some content"
	}
	return fe
}

// Validate returns ErrInvalidDraft with the field messages when the draft
// fails the compose-step schema.
func (d *Draft) Validate() error {
	if fe := d.Check(); len(fe) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDraft, fe.Error())
	}
	return nil
}

// SlugPreview returns the URL slug the post would publish under. The server
// owns the final slug; this is only a local preview.
func (d *Draft) SlugPreview() string {
	return slug.Make(d.Title)
}

// Document parses the draft body into a rich-content document tree.
func (d *Draft) Document() (*Node, error) {
	return ParseMarkdown(d.Content)
}

// FrontmatterFormat selects the frontmatter encoding for draft files.
type FrontmatterFormat string

const (
	FrontmatterYAML FrontmatterFormat = "yaml"
	FrontmatterTOML FrontmatterFormat = "toml"
)

// draftMeta is the frontmatter of an exported draft file.
type draftMeta struct {
	Title       string    `yaml:"title,omitempty" toml:"title,omitempty"`
	Description string    `yaml:"description,omitempty" toml:"description,omitempty"`
	Category    string    `yaml:"category,omitempty" toml:"category,omitempty"`
	CardType    string    `yaml:"card_type,omitempty" toml:"card_type,omitempty"`
	Updated     time.Time `yaml:"updated,omitempty" toml:"updated,omitempty"`
}

// EncodeMarkdown serializes the draft as a markdown file with frontmatter,
// so it can be edited outside the wizard.
func (d *Draft) EncodeMarkdown(format FrontmatterFormat) ([]byte, error) {
	meta := draftMeta{
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category.String(),
		CardType:    d.CardType.String(),
		Updated:     d.Updated,
	}

	var fm string
	switch format {
	case FrontmatterYAML:
		data, err := yaml.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML frontmatter: %w", err)
		}
		fm = fmt.Sprintf("---\n%s---\n\n", data)
	case FrontmatterTOML:
		var sb strings.Builder
		if err := toml.NewEncoder(&sb).Encode(meta); err != nil {
			return nil, fmt.Errorf("failed to marshal TOML frontmatter: %w", err)
		}
		fm = fmt.Sprintf("+++\n%s+++\n\n", sb.String())
	default:
		return nil, fmt.Errorf("unsupported frontmatter format: %s", format)
	}

	return []byte(fm + d.Content), nil
}

// DecodeDraftMarkdown parses a markdown draft file, reading YAML or TOML
// frontmatter and keeping the body as markdown source.
func DecodeDraftMarkdown(src []byte) (*Draft, error) {
	md := goldmark.New(goldmark.WithExtensions(&frontmatter.Extender{}))
	ctx := parser.NewContext()
	var buf bytes.Buffer
	if err := md.Convert(src, &buf, parser.WithContext(ctx)); err != nil {
		return nil, fmt.Errorf("failed to parse draft file: %w", err)
	}

	meta := draftMeta{}
	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(&meta); err != nil {
			return nil, fmt.Errorf("failed to decode frontmatter: %w", err)
		}
	}

	return &Draft{
		Title:       meta.Title,
		Description: meta.Description,
		Category:    Category(strings.ToUpper(meta.Category)),
		CardType:    CardType(strings.ToUpper(meta.CardType)),
		Content:     strings.TrimSpace(stripFrontmatter(string(src))),
		Updated:     meta.Updated,
	}, nil
}

// stripFrontmatter removes a leading ---/+++ delimited block, returning the
// body untouched.
func stripFrontmatter(src string) string {
	for _, delim := range []string{"---", "+++"} {
		if !strings.HasPrefix(src, delim+"\n") && !strings.HasPrefix(src, delim+"\r\n") {
			continue
		}
		rest := src[len(delim):]
		end := strings.Index(rest, "\n"+delim)
		if end < 0 {
			continue
		}
		after := rest[end+1+len(delim):]
		return strings.TrimLeft(after, "\r\n")
	}
	return src
}
