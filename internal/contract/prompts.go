package contract

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/adwizard/internal/models"
)

const extractSystemInstruction = `Ты — эксперт-маркетолог и аналитик. Твоя задача — внимательно изучить предоставленный контент с веб-страницы (лендинга) и извлечь из него ключевую информацию. Ты должен четко определить продукт, его целевую аудиторию и основные преимущества. Результат верни в виде JSON-объекта, строго соответствующего схеме.`

const refineSystemInstruction = `Ты — AI-ассистент для редактирования рекламных креативов Яндекс.Директ.
Пользователь предоставляет JSON-массив с текущими креативами и текстовый запрос на их изменение.
Твоя задача — внимательно прочитать запрос, внести необходимые правки в JSON и вернуть ПОЛНЫЙ обновленный JSON-массив в том же формате и в том же порядке.
Строго соблюдай ограничения по длине символов для каждого поля.
Не добавляй никаких комментариев, объяснений или вступлений. Твой ответ — это только итоговый JSON.`

const imagePromptPrefix = "Создай яркое, кликабельное, релевантное рекламное изображение для РСЯ. Изображение должно быть фотографического качества, без текста. Промпт: "

func buildExtractPrompt(content string) string {
	return fmt.Sprintf("Проанализируй следующий контент и извлеки из него описание продукта, целевую аудиторию и ключевые УТП.\n\nКОНТЕНТ:\n---\n%s\n---", content)
}

func buildGenerateSystemInstruction(variants int) string {
	return fmt.Sprintf(`Ты — опытный директолог и копирайтер, специализирующийся на создании высококонверсионных рекламных объявлений для Яндекс.Директ.
Твоя задача — сгенерировать %d уникальных вариантов рекламных объявлений на основе предоставленной информации.
Ты должен строго соблюдать ограничения по длине для каждого поля.
Результат должен быть представлен в виде JSON-массива объектов, соответствующего предоставленной схеме. Не добавляй никаких объяснений или вступлений, только JSON.`, variants)
}

func buildGeneratePrompt(form models.FormSnapshot) string {
	website := form.WebsiteURL
	if strings.TrimSpace(website) == "" {
		website = "Не указана"
	}
	keywords := form.Keywords
	if strings.TrimSpace(keywords) == "" {
		keywords = "Не указаны"
	}

	return fmt.Sprintf(`Сгенерируй рекламные креативы для Яндекс.Директ.

Информация о продукте:
- Продукт/Услуга: %s
- Целевая аудитория: %s
- Ключевые преимущества/УТП: %s
- Ссылка на сайт (для контекста): %s
- Ключевые слова (для контекста): %s

Требования к генерации:
- Креативный стиль: %s
- Количество вариантов для генерации: %d
`,
		form.ProductDescription,
		form.TargetAudience,
		strings.Join(form.FilledUSP(), ", "),
		website,
		keywords,
		form.CreativeStyle,
		form.VariantCount,
	)
}

func buildRefinePrompt(instruction, creativesJSON string) string {
	return fmt.Sprintf("Запрос пользователя: %q\n\nТекущий JSON с креативами:\n%s\n", instruction, creativesJSON)
}

func buildCreativeImagePrompt(c models.AdCreative, form models.FormSnapshot) string {
	return fmt.Sprintf("Рекламное изображение для: %s - %s. Целевая аудитория: %s", c.Headline1, c.AdText, form.TargetAudience)
}

func buildRegenerateImagePrompt(instruction string, form models.FormSnapshot) string {
	return fmt.Sprintf("Перегенерируй изображение на основе запроса: %q. Исходная информация: продукт - %s, ЦА - %s.",
		instruction, form.ProductDescription, form.TargetAudience)
}
