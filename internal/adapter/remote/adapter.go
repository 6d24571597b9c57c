package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"DialogHarness/internal/dialog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultEndpoint — адрес удалённого диалогового сервиса по умолчанию.
const DefaultEndpoint = "https://clwoz2.azurewebsites.net/api/multiwoz"

// Ensure interface compliance
var _ dialog.Agent = (*Adapter)(nil)

// request — тело запроса к сервису: реплика и идентификатор диалога.
type request struct {
	Input string `json:"input"`
	ID    string `json:"id"`
}

// Result — исход одного хода: либо текст, либо причина сбоя.
type Result struct {
	Text string
	Err  error
}

func (r Result) OK() bool { return r.Err == nil }

// Adapter — системный агент, который делегирует понимание и выбор действия удалённому
// HTTP-сервису, а полученное предсказание превращает в текст через генератор.
// История диалога хранится на стороне сервиса; локально хранится только идентификатор сессии.
type Adapter struct {
	name     string
	nlg      dialog.Generator
	endpoint string
	http     *http.Client
	logger   *zap.SugaredLogger

	sessionID string
}

type Option func(*Adapter)

// WithEndpoint задаёт адрес сервиса.
func WithEndpoint(url string) Option {
	return func(a *Adapter) {
		if u := strings.TrimSpace(url); u != "" {
			a.endpoint = u
		}
	}
}

// WithHTTPClient подменяет HTTP-клиент (например, для тестов).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.http = c
		}
	}
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New создаёт адаптер с генератором nlg и отображаемым именем name. Идентификатор сессии
// генерируется сразу.
func New(nlg dialog.Generator, name string, opts ...Option) *Adapter {
	a := &Adapter{
		name:      name,
		nlg:       nlg,
		endpoint:  DefaultEndpoint,
		http:      http.DefaultClient,
		logger:    zap.NewNop().Sugar(),
		sessionID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named(name)
	return a
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Endpoint() string { return a.endpoint }

// InitSession начинает новый, несвязанный диалог: выдаёт новый идентификатор сессии.
func (a *Adapter) InitSession() {
	a.sessionID = uuid.NewString()
}

// SessionID возвращает текущий идентификатор сессии (для сохранения и восстановления).
func (a *Adapter) SessionID() string { return a.sessionID }

// SetSessionID подменяет идентификатор сессии. Значение не проверяется.
func (a *Adapter) SetSessionID(id string) { a.sessionID = id }

// Response возвращает текст ответа системы. Любой сбой хода логируется как предупреждение
// и превращается в пустую строку, чтобы внешний цикл анализа не прерывался.
func (a *Adapter) Response(ctx context.Context, observation string) string {
	res := a.Respond(ctx, observation)
	if !res.OK() {
		a.logger.Warnw("calling to remote dialogue service failed", "error", res.Err, "session", a.sessionID)
		return ""
	}
	return res.Text
}

// Respond выполняет один ход и возвращает явный результат без деградации.
func (a *Adapter) Respond(ctx context.Context, observation string) Result {
	if a.nlg == nil {
		return Result{Err: errors.New("nil generator")}
	}
	prediction, err := a.Predict(ctx, observation)
	if err != nil {
		return Result{Err: err}
	}
	text, err := a.nlg.Generate(ctx, prediction)
	if err != nil {
		return Result{Err: fmt.Errorf("generate: %w", err)}
	}
	a.logger.Infow("sys", "text", text)
	return Result{Text: text}
}

// Predict отправляет реплику сервису и возвращает декодированный JSON-ответ как есть.
func (a *Adapter) Predict(ctx context.Context, utterance string) (any, error) {
	body, err := json.Marshal(request{Input: utterance, ID: a.sessionID})
	if err != nil {
		return nil, err
	}
	a.logger.Infow("user", "text", utterance)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(b) == 0 {
			b = []byte(resp.Status)
		}
		return nil, fmt.Errorf("remote dialogue service error: status=%d, body=%s", resp.StatusCode, bytes.TrimSpace(b))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	a.logger.Infow("remote", "raw", string(raw))

	var prediction any
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, fmt.Errorf("decode json response: %w", err)
	}
	return prediction, nil
}
