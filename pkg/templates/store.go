package templates

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jordanlanch/leadrouter/pkg/domain"
	"github.com/jordanlanch/leadrouter/pkg/logger"
	"github.com/jordanlanch/leadrouter/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTemplates []byte

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Content is the text of one template on one channel.
type Content struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body" validate:"required"`
}

// MessageTemplate is a template with per-channel content.
type MessageTemplate struct {
	ID       string                     `yaml:"id" validate:"required"`
	Channels map[models.Channel]Content `yaml:"channels" validate:"required,min=1,dive,keys,oneof=email sms phone task,endkeys"`
}

type file struct {
	Templates []MessageTemplate `yaml:"templates" validate:"required,min=1,dive"`
}

// Message is a rendered template. Missing lists placeholders that had no
// value and rendered empty.
type Message struct {
	Subject string
	Body    string
	Missing []string
}

// Store holds the templates loaded at startup. It is read-only and safe for
// concurrent use.
type Store struct {
	templates map[string]MessageTemplate
	logger    logger.Logger
}

// Default returns a store with the built-in templates.
func Default(log logger.Logger) (*Store, error) {
	return Parse(defaultTemplates, log)
}

// Load reads templates from a YAML file. An empty path loads the built-in set.
func Load(path string, log logger.Logger) (*Store, error) {
	if path == "" {
		return Default(log)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templates: read %s: %w", path, err)
	}
	store, err := Parse(data, log)
	if err != nil {
		return nil, fmt.Errorf("templates: %s: %w", path, err)
	}
	return store, nil
}

// Parse decodes and validates a YAML template set.
func Parse(data []byte, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("templates: payload is empty")
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("templates: decode: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("templates: invalid: %w", err)
	}

	store := &Store{templates: make(map[string]MessageTemplate, len(f.Templates)), logger: log}
	for _, t := range f.Templates {
		if _, dup := store.templates[t.ID]; dup {
			return nil, fmt.Errorf("templates: duplicate template %q", t.ID)
		}
		if c, ok := t.Channels[models.ChannelEmail]; ok && strings.TrimSpace(c.Subject) == "" {
			return nil, fmt.Errorf("templates: %s: email content needs a subject", t.ID)
		}
		store.templates[t.ID] = t
	}
	return store, nil
}

// Has reports whether templateID has content for channel.
func (s *Store) Has(templateID string, channel models.Channel) bool {
	t, ok := s.templates[templateID]
	if !ok {
		return false
	}
	_, ok = t.Channels[channel]
	return ok
}

// IDs returns the loaded template ids, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RenderMessage interpolates the subject and body of a template.
func (s *Store) RenderMessage(templateID string, channel models.Channel, vars map[string]string) (Message, error) {
	t, ok := s.templates[templateID]
	if !ok {
		return Message{}, domain.NewUnknownTemplateError(templateID, string(channel))
	}
	c, ok := t.Channels[channel]
	if !ok {
		return Message{}, domain.NewUnknownTemplateError(templateID, string(channel))
	}

	missing := make(map[string]struct{})
	msg := Message{
		Subject: interpolate(c.Subject, vars, missing),
		Body:    interpolate(c.Body, vars, missing),
	}
	if len(missing) > 0 {
		for name := range missing {
			msg.Missing = append(msg.Missing, name)
		}
		sort.Strings(msg.Missing)
		s.logger.Warn("template variables missing",
			"template_id", templateID,
			"channel", string(channel),
			"missing", msg.Missing,
		)
	}
	return msg, nil
}

// Render returns only the interpolated body.
func (s *Store) Render(templateID string, channel models.Channel, vars map[string]string) (string, error) {
	msg, err := s.RenderMessage(templateID, channel, vars)
	if err != nil {
		return "", err
	}
	return msg.Body, nil
}

func interpolate(text string, vars map[string]string, missing map[string]struct{}) string {
	return placeholder.ReplaceAllStringFunc(text, func(token string) string {
		name := token[1 : len(token)-1]
		v, ok := vars[name]
		if !ok {
			missing[name] = struct{}{}
		}
		return v
	})
}
