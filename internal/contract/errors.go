package contract

import (
	"errors"
)

// Error kinds returned by the contract layer. Each failure wraps exactly one
// of these, check with errors.Is.
var (
	ErrMissingCredential = errors.New("API key is not configured")
	ErrExtraction        = errors.New("content extraction failed")
	ErrURLUnsupported    = errors.New("URL analysis is not supported")
	ErrGeneration        = errors.New("creative generation failed")
	ErrRefinement        = errors.New("creative refinement failed")
	ErrImageGeneration   = errors.New("image generation failed")
)

// UserMessage turns an error from this package into the text shown to the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "API-ключ не найден. Пожалуйста, добавьте его в настройках."
	case errors.Is(err, ErrURLUnsupported):
		return "Анализ по URL временно недоступен. Пожалуйста, скопируйте текст со страницы и загрузите его как файл."
	case errors.Is(err, ErrExtraction):
		return "Не удалось проанализировать контент. Убедитесь, что он содержит достаточно информации о продукте."
	case errors.Is(err, ErrImageGeneration):
		return "Не удалось сгенерировать изображение."
	case errors.Is(err, ErrGeneration):
		return "Не удалось сгенерировать креативы. Проверьте входные данные и попробуйте снова."
	case errors.Is(err, ErrRefinement):
		return "Не удалось применить правки. Пожалуйста, попробуйте переформулировать запрос."
	default:
		return "Произошла неизвестная ошибка."
	}
}
