package dialog

import "context"

// Generator превращает структурированное предсказание (диалоговые акты) в текст.
// prediction — произвольное значение: []Act или декодированный JSON удалённого сервиса.
type Generator interface {
	Generate(ctx context.Context, prediction any) (string, error)
}

// Agent описывает участника диалога с контрактом «реплика на входе — текст на выходе».
// Все реализации (симулированный пользователь, удалённый агент) должны быть взаимозаменяемыми.
type Agent interface {
	// Name возвращает отображаемое имя агента (sys, user и т.п.).
	Name() string

	// Response возвращает ответ агента на реплику собеседника. Ошибки наружу не пробрасываются:
	// при сбое агент обязан деградировать до пустой строки.
	Response(ctx context.Context, observation string) string

	// InitSession сбрасывает состояние агента перед новым, несвязанным диалогом.
	InitSession()
}

// GeneratorFunc адаптирует обычную функцию к интерфейсу Generator.
type GeneratorFunc func(ctx context.Context, prediction any) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prediction any) (string, error) {
	return f(ctx, prediction)
}
