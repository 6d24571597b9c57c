package stubservice

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"DialogHarness/internal/dialog"

	"gopkg.in/yaml.v3"
)

//go:embed database.yaml
var defaultDatabase []byte

// Entity — запись базы: слот -> значение, включая Name.
type Entity map[string]string

// Matches сообщает, удовлетворяет ли запись ограничениям. dontcare и none не ограничивают.
func (e Entity) Matches(constraints map[string]string) bool {
	for slot, want := range constraints {
		if want == "" || strings.EqualFold(want, dialog.DontCare) || strings.EqualFold(want, dialog.None) {
			continue
		}
		got, ok := e[slot]
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

// Database — статическая база сущностей по доменам.
type Database struct {
	domains map[string][]Entity
}

// NewDatabase разбирает базу в YAML. Пустой data — встроенная база.
func NewDatabase(data []byte) (*Database, error) {
	if len(data) == 0 {
		data = defaultDatabase
	}
	var domains map[string][]Entity
	if err := yaml.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("parse database: %w", err)
	}
	if len(domains) == 0 {
		return nil, errors.New("database is empty")
	}
	for d, entities := range domains {
		for i, e := range entities {
			if strings.TrimSpace(e["Name"]) == "" {
				return nil, fmt.Errorf("%s entity %d has no Name", d, i)
			}
		}
	}
	return &Database{domains: domains}, nil
}

// LoadDatabase читает базу из файла; пустой путь — встроенная база.
func LoadDatabase(path string) (*Database, error) {
	if strings.TrimSpace(path) == "" {
		return NewDatabase(nil)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read database: %w", err)
	}
	return NewDatabase(b)
}

// Query возвращает записи домена, подходящие под ограничения, в порядке базы.
func (d *Database) Query(domain string, constraints map[string]string) []Entity {
	var out []Entity
	for _, e := range d.domains[domain] {
		if e.Matches(constraints) {
			out = append(out, e)
		}
	}
	return out
}
