package nlu

import (
	"embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"DialogHarness/internal/dialog"

	"gopkg.in/yaml.v3"
)

//go:embed rules/*.yaml
var builtin embed.FS

// Встроенные наборы правил.
const (
	ModeSystem = "system" // разбор реплик системы
	ModeUser   = "user"   // разбор реплик пользователя
)

// Rule сопоставляет регулярное выражение с диалоговым актом. Если Value пуст,
// значением становится первая группа захвата.
type Rule struct {
	Intent  string `yaml:"intent"`
	Domain  string `yaml:"domain"`
	Slot    string `yaml:"slot"`
	Value   string `yaml:"value"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

type ruleSet struct {
	Domains map[string]string `yaml:"domains"`
	Rules   []Rule            `yaml:"rules"`
}

// RuleNLU — понимание естественного языка на регулярных выражениях.
// Домен акта берётся из правила, иначе из ключевого слова в том же предложении; если
// его нет, домен остаётся пустым и его подставляет потребитель.
type RuleNLU struct {
	domains map[string]string
	rules   []Rule
}

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]*`)
	wordRe     = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// New загружает встроенный набор правил (ModeSystem или ModeUser).
func New(mode string) (*RuleNLU, error) {
	b, err := builtin.ReadFile("rules/" + mode + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("nlu: unknown mode %q", mode)
	}
	return FromYAML(b)
}

// Load читает набор правил из файла.
func Load(path string) (*RuleNLU, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("nlu: read rules: %w", err)
	}
	return FromYAML(b)
}

// FromYAML компилирует набор правил.
func FromYAML(b []byte) (*RuleNLU, error) {
	var rs ruleSet
	if err := yaml.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("nlu: parse rules: %w", err)
	}
	n := &RuleNLU{domains: make(map[string]string, len(rs.Domains)), rules: make([]Rule, 0, len(rs.Rules))}
	for k, v := range rs.Domains {
		n.domains[strings.ToLower(k)] = v
	}
	for i, r := range rs.Rules {
		if r.Intent == "" || r.Pattern == "" {
			return nil, fmt.Errorf("nlu: rule %d: intent and pattern are required", i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("nlu: rule %d: %w", i, err)
		}
		r.re = re
		n.rules = append(n.rules, r)
	}
	return n, nil
}

// Parse разбирает текст в список актов. Пустой текст даёт пустой список.
func (n *RuleNLU) Parse(text string) []dialog.Act {
	var out []dialog.Act
	seen := make(map[dialog.Act]struct{})
	for _, sentence := range sentenceRe.FindAllString(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		domain := n.detectDomain(sentence)
		for _, r := range n.rules {
			m := r.re.FindStringSubmatch(sentence)
			if m == nil {
				continue
			}
			value := r.Value
			if value == "" && len(m) > 1 {
				value = m[1]
			}
			d := r.Domain
			if d == "" {
				d = domain
			}
			a := dialog.NewAct(r.Intent, d, r.Slot, value)
			if _, dup := seen[a]; dup {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

func (n *RuleNLU) detectDomain(sentence string) string {
	for _, w := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if d, ok := n.domains[w]; ok {
			return d
		}
	}
	return ""
}
