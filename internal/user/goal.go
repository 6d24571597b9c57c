package user

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"math/rand"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed goals.yaml
var defaultGoals []byte

// DomainGoal — что пользователь хочет получить в одном домене.
type DomainGoal struct {
	Domain string            `yaml:"domain" json:"domain"`
	Info   map[string]string `yaml:"info" json:"info"`
	Reqt   []string          `yaml:"reqt" json:"reqt,omitempty"`
	Book   bool              `yaml:"book" json:"book,omitempty"`
}

// InfoSlots возвращает слоты ограничений в стабильном порядке.
func (d DomainGoal) InfoSlots() []string {
	return slices.Sorted(maps.Keys(d.Info))
}

// Goal — цель на весь диалог; домены обходятся по порядку.
type Goal struct {
	Domains []DomainGoal `yaml:"domains" json:"domains"`
}

func (g Goal) Clone() Goal {
	out := Goal{Domains: make([]DomainGoal, 0, len(g.Domains))}
	for _, d := range g.Domains {
		out.Domains = append(out.Domains, DomainGoal{
			Domain: d.Domain,
			Info:   maps.Clone(d.Info),
			Reqt:   slices.Clone(d.Reqt),
			Book:   d.Book,
		})
	}
	return out
}

func (g Goal) String() string {
	parts := make([]string, 0, len(g.Domains))
	for _, d := range g.Domains {
		parts = append(parts, d.Domain)
	}
	return strings.Join(parts, "+")
}

// GoalGenerator выдаёт цели из набора, выбирая их переданным генератором случайных чисел.
type GoalGenerator struct {
	goals []Goal
	rng   *rand.Rand
}

// NewGoalGenerator разбирает набор целей в YAML. Пустой data — встроенный набор.
func NewGoalGenerator(rng *rand.Rand, data []byte) (*GoalGenerator, error) {
	if len(data) == 0 {
		data = defaultGoals
	}
	var goals []Goal
	if err := yaml.Unmarshal(data, &goals); err != nil {
		return nil, fmt.Errorf("parse goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, errors.New("goal set is empty")
	}
	for i, g := range goals {
		if len(g.Domains) == 0 {
			return nil, fmt.Errorf("goal %d has no domains", i)
		}
		for _, d := range g.Domains {
			if strings.TrimSpace(d.Domain) == "" {
				return nil, fmt.Errorf("goal %d has a domain without name", i)
			}
		}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}
	return &GoalGenerator{goals: goals, rng: rng}, nil
}

// LoadGoalGenerator читает набор целей из файла; пустой путь — встроенный набор.
func LoadGoalGenerator(rng *rand.Rand, path string) (*GoalGenerator, error) {
	if strings.TrimSpace(path) == "" {
		return NewGoalGenerator(rng, nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read goals: %w", err)
	}
	return NewGoalGenerator(rng, b)
}

// Next возвращает копию случайной цели.
func (g *GoalGenerator) Next() Goal {
	return g.goals[g.rng.Intn(len(g.goals))].Clone()
}

func (g *GoalGenerator) Len() int { return len(g.goals) }
