// Package compose renders outreach messages from Liquid templates with
// per-candidate data injection.
package compose

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/outreach-engine/internal/domain"
)

// Message is a rendered, ready-to-dispatch message.
type Message struct {
	Subject string
	Body    string
}

// Composer renders the message for one outreach attempt.
type Composer interface {
	Compose(kind domain.EventType, cand domain.Candidate, contact *domain.Contact) (Message, error)
}

// Liquid renders messages with the Liquid template language. Built-in
// templates cover both message kinds; a template directory can override
// any of them by file name (initial_subject.liquid, initial_body.liquid,
// followup_subject.liquid, followup_body.liquid, summary_subject.liquid,
// summary_body.liquid).
type Liquid struct {
	engine    *liquid.Engine
	templates map[string]string
	globals   map[string]interface{}
	cache     sync.Map // map[string]*liquid.Template
}

// NewLiquid builds a composer, loading template overrides from dir when
// it is non-empty. Globals are bindings visible to every render, used
// for sender identity.
func NewLiquid(dir string, globals map[string]interface{}) (*Liquid, error) {
	l := &Liquid{
		engine:    liquid.NewEngine(),
		templates: defaultTemplates(),
		globals:   globals,
	}
	l.registerFilters()

	if dir != "" {
		if err := l.loadOverrides(dir); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// registerFilters adds the filters the built-in templates rely on.
func (l *Liquid) registerFilters() {
	// Fallback value: {{ first_name | default: "there" }}
	l.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Capitalize first letter: {{ name | capitalize }}
	l.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// Extract domain from an address: {{ address | email_domain }}
	l.engine.RegisterFilter("email_domain", func(addr string) string {
		parts := strings.Split(addr, "@")
		if len(parts) == 2 {
			return parts[1]
		}
		return ""
	})
}

func (l *Liquid) loadOverrides(dir string) error {
	for name := range l.templates {
		path := filepath.Join(dir, name+".liquid")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		if err := l.parseCheck(string(data)); err != nil {
			return fmt.Errorf("template %s: %w", path, err)
		}
		l.templates[name] = strings.TrimRight(string(data), "\n")
	}
	return nil
}

func (l *Liquid) parseCheck(src string) error {
	_, err := l.engine.ParseString(src)
	return err
}

// Compose renders the subject and body for the given attempt kind.
func (l *Liquid) Compose(kind domain.EventType, cand domain.Candidate, contact *domain.Contact) (Message, error) {
	bindings := l.bindings(cand, contact)

	prefix := string(kind)
	subject, err := l.render(prefix+"_subject", bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", kind, err)
	}
	body, err := l.render(prefix+"_body", bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", kind, err)
	}
	return Message{Subject: strings.TrimSpace(subject), Body: body}, nil
}

// Summary renders the end-of-run summary message from the given report
// bindings.
func (l *Liquid) Summary(report map[string]interface{}) (Message, error) {
	bindings := make(map[string]interface{}, len(report)+len(l.globals))
	for k, v := range l.globals {
		bindings[k] = v
	}
	for k, v := range report {
		bindings[k] = v
	}
	subject, err := l.render("summary_subject", bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render summary subject: %w", err)
	}
	body, err := l.render("summary_body", bindings)
	if err != nil {
		return Message{}, fmt.Errorf("render summary body: %w", err)
	}
	return Message{Subject: strings.TrimSpace(subject), Body: body}, nil
}

func (l *Liquid) render(name string, bindings map[string]interface{}) (string, error) {
	src, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}

	var tpl *liquid.Template
	if cached, ok := l.cache.Load(name); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := l.engine.ParseString(src)
		if err != nil {
			return "", err
		}
		l.cache.Store(name, parsed)
		tpl = parsed
	}
	return tpl.RenderString(bindings)
}

// bindings flattens the candidate and contact into template variables.
// Every candidate attribute is exposed directly, so feeds can carry
// arbitrary personalization data without composer changes.
func (l *Liquid) bindings(cand domain.Candidate, contact *domain.Contact) map[string]interface{} {
	b := map[string]interface{}{
		"address":      cand.Address,
		"organization": cand.Organization,
	}
	for k, v := range l.globals {
		b[k] = v
	}
	for k, v := range cand.Attributes {
		b[k] = v
	}
	if _, ok := b["first_name"]; !ok {
		if name := firstNameFromAddress(cand.Address); name != "" {
			b["first_name"] = name
		}
	}
	if contact != nil {
		if contact.FirstContactedAt != nil {
			b["first_contacted_at"] = *contact.FirstContactedAt
		}
		if contact.LastContactedAt != nil {
			b["last_contacted_at"] = *contact.LastContactedAt
		}
		b["followup_count"] = contact.FollowupCount
	}
	return b
}

// firstNameFromAddress guesses a first name from the local part of an
// address: "jane.doe@acme.com" becomes "Jane". Purely a template
// fallback, never used for anything else.
func firstNameFromAddress(addr string) string {
	at := strings.Index(addr, "@")
	if at <= 0 {
		return ""
	}
	local := addr[:at]
	for _, sep := range []string{".", "_", "-", "+"} {
		if idx := strings.Index(local, sep); idx > 0 {
			local = local[:idx]
		}
	}
	if local == "" || strings.ContainsAny(local, "0123456789") {
		return ""
	}
	return strings.ToUpper(local[:1]) + strings.ToLower(local[1:])
}
