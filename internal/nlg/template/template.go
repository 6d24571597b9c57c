package template

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"

	"DialogHarness/internal/dialog"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

// Templates — Domain-Intent -> слот -> варианты фразы.
type Templates map[string]map[string][]string

type templateFile struct {
	System Templates `yaml:"system"`
	User   Templates `yaml:"user"`
}

// Ensure interface compliance
var _ dialog.Generator = (*NLG)(nil)

// NLG — шаблонный генератор реплик. Вариант шаблона выбирается переданным генератором
// случайных чисел, поэтому при одинаковом seed результат воспроизводим.
type NLG struct {
	isUser    bool
	templates Templates

	mu  sync.Mutex
	rng *rand.Rand
}

type options struct {
	data []byte
	path string
}

type Option func(*options)

// WithTemplatesFile загружает шаблоны из YAML-файла вместо встроенных.
func WithTemplatesFile(path string) Option {
	return func(o *options) { o.path = path }
}

// WithTemplates задаёт шаблоны содержимым YAML.
func WithTemplates(data []byte) Option {
	return func(o *options) { o.data = data }
}

// New создаёт генератор для реплик пользователя (isUser=true) или системы.
func New(isUser bool, rng *rand.Rand, opts ...Option) (*NLG, error) {
	o := options{data: defaultTemplates}
	for _, opt := range opts {
		opt(&o)
	}
	if p := strings.TrimSpace(o.path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read templates: %w", err)
		}
		o.data = b
	}

	var tf templateFile
	if err := yaml.Unmarshal(o.data, &tf); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	t := tf.System
	if isUser {
		t = tf.User
	}
	if t == nil {
		t = Templates{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &NLG{isUser: isUser, templates: t, rng: rng}, nil
}

// Generate реализует dialog.Generator.
func (g *NLG) Generate(_ context.Context, prediction any) (string, error) {
	acts, err := dialog.ParseActs(prediction)
	if err != nil {
		return "", err
	}
	return g.Realize(acts)
}

// Realize превращает список актов в текст: по предложению на акт, повторы схлопываются.
func (g *NLG) Realize(acts []dialog.Act) (string, error) {
	if len(acts) == 0 {
		return "", errors.New("template nlg: no dialog acts")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]struct{}, len(acts))
	sentences := make([]string, 0, len(acts))
	for _, a := range acts {
		s := g.sentence(a)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		sentences = append(sentences, s)
	}
	if len(sentences) == 0 {
		return "", fmt.Errorf("template nlg: nothing to say for %v", acts)
	}
	return strings.Join(sentences, " "), nil
}

func (g *NLG) sentence(a dialog.Act) string {
	slotKey := a.Slot
	if strings.EqualFold(a.Value, dialog.DontCare) {
		slotKey = dialog.DontCare
	}
	if variants := g.lookup(a, slotKey); len(variants) > 0 {
		return fill(variants[g.rng.Intn(len(variants))], a)
	}
	return fallback(a, g.isUser)
}

func (g *NLG) lookup(a dialog.Act, slot string) []string {
	for _, key := range []string{a.Key(), "*-" + a.Intent} {
		bySlot, ok := g.templates[key]
		if !ok {
			continue
		}
		if v := bySlot[slot]; len(v) > 0 {
			return v
		}
	}
	return nil
}

func fill(tpl string, a dialog.Act) string {
	return strings.NewReplacer(
		"{value}", a.Value,
		"{domain}", strings.ToLower(a.Domain),
		"{slot}", strings.ToLower(a.Slot),
	).Replace(tpl)
}

func fallback(a dialog.Act, isUser bool) string {
	slot := strings.ToLower(a.Slot)
	switch a.Intent {
	case dialog.IntentInform, dialog.IntentRecommend:
		if a.Slot == dialog.None {
			return ""
		}
		return fmt.Sprintf("The %s is %s.", slot, a.Value)
	case dialog.IntentRequest:
		if isUser {
			return fmt.Sprintf("What is the %s?", slot)
		}
		return fmt.Sprintf("What %s would you like?", slot)
	case dialog.IntentBye:
		return "Goodbye."
	default:
		return ""
	}
}
