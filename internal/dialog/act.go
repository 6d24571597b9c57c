package dialog

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Интенты и домены, которые понимают компоненты харнесса.
const (
	IntentInform    = "Inform"
	IntentRequest   = "Request"
	IntentRecommend = "Recommend"
	IntentBook      = "Book"
	IntentNoOffer   = "NoOffer"
	IntentBye       = "bye"
	IntentThank     = "thank"
	IntentGreet     = "greet"
	IntentReqmore   = "reqmore"

	DomainGeneral = "general"

	// None — значение слота/значения для актов без аргумента.
	None = "none"
	// DontCare — пользователь согласен на любое значение слота.
	DontCare = "dontcare"
)

// Act — один диалоговый акт. На проводе кодируется массивом из четырёх строк:
// ["Inform","Hotel","Area","north"].
type Act struct {
	Intent string `json:"intent"`
	Domain string `json:"domain"`
	Slot   string `json:"slot"`
	Value  string `json:"value"`
}

// NewAct создаёт акт, подставляя none вместо пустых слота и значения.
func NewAct(intent, domain, slot, value string) Act {
	a := Act{Intent: intent, Domain: domain, Slot: slot, Value: value}
	return a.normalize()
}

// Key возвращает ключ вида Domain-Intent, как в разметке MultiWOZ.
func (a Act) Key() string { return a.Domain + "-" + a.Intent }

func (a Act) String() string {
	return fmt.Sprintf("%s(%s=%s)", a.Key(), a.Slot, a.Value)
}

// IsGeneral сообщает, относится ли акт к служебному домену (bye, thank, reqmore...).
func (a Act) IsGeneral() bool { return strings.EqualFold(a.Domain, DomainGeneral) }

func (a Act) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]string{a.Intent, a.Domain, a.Slot, a.Value})
}

func (a *Act) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := parseActItem(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Act) normalize() Act {
	a.Intent = strings.TrimSpace(a.Intent)
	a.Domain = strings.TrimSpace(a.Domain)
	a.Slot = strings.TrimSpace(a.Slot)
	a.Value = strings.TrimSpace(a.Value)
	if a.Slot == "" {
		a.Slot = None
	}
	if a.Value == "" {
		a.Value = None
	}
	return a
}

// ErrUnsupportedPrediction возвращается, когда форма предсказания не распознана.
var ErrUnsupportedPrediction = errors.New("unsupported prediction format")

// wrapperKeys — ключи объекта, под которыми сервисы обычно кладут список актов.
var wrapperKeys = []string{"dialog_act", "acts", "output"}

// ParseActs приводит предсказание к списку актов. Поддерживаются:
// []Act; список массивов из четырёх элементов; список объектов intent/domain/slot/value;
// словарь MultiWOZ {"Hotel-Inform": [["Area","north"]]}; всё перечисленное, обёрнутое
// в объект с ключом dialog_act, acts или output; JSON-строка с любой из этих форм.
func ParseActs(prediction any) ([]Act, error) {
	switch v := prediction.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedPrediction)
	case []Act:
		out := make([]Act, 0, len(v))
		for _, a := range v {
			out = append(out, a.normalize())
		}
		return out, nil
	case Act:
		return []Act{v.normalize()}, nil
	case [][]string:
		out := make([]Act, 0, len(v))
		for i, item := range v {
			if len(item) != 4 {
				return nil, fmt.Errorf("%w: act %d has %d fields", ErrUnsupportedPrediction, i, len(item))
			}
			out = append(out, NewAct(item[0], item[1], item[2], item[3]))
		}
		return out, nil
	case []any:
		out := make([]Act, 0, len(v))
		for i, item := range v {
			a, err := parseActItem(item)
			if err != nil {
				return nil, fmt.Errorf("act %d: %w", i, err)
			}
			out = append(out, a)
		}
		return out, nil
	case map[string]any:
		for _, k := range wrapperKeys {
			if inner, ok := v[k]; ok {
				return ParseActs(inner)
			}
		}
		return parseActDict(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, fmt.Errorf("%w: empty string", ErrUnsupportedPrediction)
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedPrediction, err)
		}
		if _, again := decoded.(string); again {
			return nil, fmt.Errorf("%w: nested string", ErrUnsupportedPrediction)
		}
		return ParseActs(decoded)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedPrediction, prediction)
	}
}

func parseActItem(item any) (Act, error) {
	switch v := item.(type) {
	case []any:
		if len(v) != 4 {
			return Act{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrUnsupportedPrediction, len(v))
		}
		return NewAct(scalar(v[0]), scalar(v[1]), scalar(v[2]), scalar(v[3])), nil
	case []string:
		if len(v) != 4 {
			return Act{}, fmt.Errorf("%w: expected 4 fields, got %d", ErrUnsupportedPrediction, len(v))
		}
		return NewAct(v[0], v[1], v[2], v[3]), nil
	case map[string]any:
		intent := scalar(v["intent"])
		domain := scalar(v["domain"])
		if intent == "" || domain == "" {
			return Act{}, fmt.Errorf("%w: object act without intent/domain", ErrUnsupportedPrediction)
		}
		return NewAct(intent, domain, scalar(v["slot"]), scalar(v["value"])), nil
	default:
		return Act{}, fmt.Errorf("%w: act of type %T", ErrUnsupportedPrediction, item)
	}
}

// parseActDict разбирает словарь MultiWOZ. Ключи сортируются, чтобы порядок актов
// не зависел от порядка обхода map.
func parseActDict(m map[string]any) ([]Act, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out []Act
	for _, k := range keys {
		domain, intent, ok := strings.Cut(k, "-")
		if !ok || domain == "" || intent == "" {
			return nil, fmt.Errorf("%w: key %q", ErrUnsupportedPrediction, k)
		}
		pairs, ok := m[k].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: key %q holds %T", ErrUnsupportedPrediction, k, m[k])
		}
		if len(pairs) == 0 {
			out = append(out, NewAct(intent, domain, None, None))
			continue
		}
		for _, p := range pairs {
			pair, ok := p.([]any)
			if !ok || len(pair) != 2 {
				return nil, fmt.Errorf("%w: key %q has malformed slot pair", ErrUnsupportedPrediction, k)
			}
			out = append(out, NewAct(intent, domain, scalar(pair[0]), scalar(pair[1])))
		}
	}
	return out, nil
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
