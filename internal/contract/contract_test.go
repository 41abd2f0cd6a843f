package contract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKey string

func (k staticKey) Credential(context.Context) (string, error) { return string(k), nil }

type fakeText struct {
	mu       sync.Mutex
	calls    []providers.TextRequest
	response func(req providers.TextRequest) (string, error)
}

func (f *fakeText) GenerateJSON(_ context.Context, req providers.TextRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.response(req)
}

type fakeImages struct {
	calls atomic.Int32
	fail  func(prompt string) bool
}

func (f *fakeImages) GenerateImages(_ context.Context, req providers.ImageRequest) ([][]byte, error) {
	n := f.calls.Add(1)
	if f.fail != nil && f.fail(req.Prompt) {
		return [][]byte{}, nil
	}
	return [][]byte{[]byte(fmt.Sprintf("img-%d:%s", n, req.Prompt))}, nil
}

func creative(i int) models.AdCreative {
	return models.AdCreative{
		Headline1:   fmt.Sprintf("H%d заголовок", i),
		Headline2:   "Второй",
		AdText:      "Текст объявления",
		DisplayLink: "example.ru",
		Sitelinks: []models.Sitelink{
			{Title: "Цены", Description: "Узнайте цены"},
			{Title: "Контакты", Description: "Свяжитесь с нами"},
		},
		Clarifications: []string{"Быстро", "Надежно"},
	}
}

func creativesJSON(t *testing.T, n int) string {
	t.Helper()
	list := make([]models.AdCreative, n)
	for i := range list {
		list[i] = creative(i + 1)
	}
	data, err := json.Marshal(list)
	require.NoError(t, err)
	return string(data)
}

func testForm(goal models.Goal, variants int) models.FormSnapshot {
	form := models.DefaultForm()
	form.Goal = goal
	form.ProductDescription = "Онлайн-школа английского"
	form.TargetAudience = "Взрослые 25-40"
	form.USP = []string{"Носители языка", "", "Гибкий график"}
	form.VariantCount = variants
	return form
}

func TestGenerateReturnsRequestedCount(t *testing.T) {
	for n := models.MinVariants; n <= models.MaxVariants; n++ {
		t.Run(fmt.Sprintf("%d variants", n), func(t *testing.T) {
			text := &fakeText{response: func(providers.TextRequest) (string, error) {
				return creativesJSON(t, n), nil
			}}
			svc := NewService(text, &fakeImages{}, staticKey("k"))

			got, err := svc.Generate(context.Background(), testForm(models.GoalTextAd, n))
			require.NoError(t, err)
			require.Len(t, got, n)
			for _, c := range got {
				assert.GreaterOrEqual(t, len(c.Sitelinks), models.MinSitelinks)
				assert.LessOrEqual(t, len(c.Sitelinks), models.MaxSitelinks)
				assert.GreaterOrEqual(t, len(c.Clarifications), models.MinClarifications)
				assert.LessOrEqual(t, len(c.Clarifications), models.MaxClarifications)
				assert.Empty(t, c.ImageURL)
			}

			require.Len(t, text.calls, 1)
			req := text.calls[0]
			assert.Equal(t, "k", req.APIKey)
			assert.Equal(t, string(models.ModelFast), req.Model)
			assert.Contains(t, req.Prompt, "Носители языка, Гибкий график")
			assert.Contains(t, req.SystemInstruction, fmt.Sprintf("сгенерировать %d уникальных", n))
			assert.Equal(t, n, *req.Schema.MinItems)
			assert.Equal(t, n, *req.Schema.MaxItems)
		})
	}
}

func TestGenerateRejectsMalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "Вот ваши креативы:"},
		{name: "wrong count", reply: `[]`},
		{name: "missing field", reply: `[{"headline1":"a","headline2":"b","adText":"c","sitelinks":[],"clarifications":["x","y"]}]`},
		{name: "too few sitelinks", reply: `[{"headline1":"a","headline2":"b","adText":"c","displayLink":"d","sitelinks":[{"title":"t","description":"d"}],"clarifications":["x","y"]}]`},
		{name: "object instead of list", reply: `{"headline1":"a"}`},
		{name: "undeclared keys", reply: `[{"headline1":"a","headline2":"b","adText":"c","displayLink":"d","sitelinks":[{"title":"t","description":"d"},{"title":"t2","description":"d2"}],"clarifications":["x","y"],"price":"990"}]`},
		{name: "undeclared sitelink key", reply: `[{"headline1":"a","headline2":"b","adText":"c","displayLink":"d","sitelinks":[{"title":"t","description":"d","url":"/x"},{"title":"t2","description":"d2"}],"clarifications":["x","y"]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := &fakeText{response: func(providers.TextRequest) (string, error) { return tt.reply, nil }}
			svc := NewService(text, &fakeImages{}, staticKey("k"))

			got, err := svc.Generate(context.Background(), testForm(models.GoalTextAd, 1))
			assert.ErrorIs(t, err, ErrGeneration)
			assert.Nil(t, got)
		})
	}
}

func TestGenerateWrapsProviderErrors(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) {
		return "", errors.New("503 unavailable")
	}}
	svc := NewService(text, &fakeImages{}, staticKey("k"))

	_, err := svc.Generate(context.Background(), testForm(models.GoalTextAd, 2))
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorContains(t, err, "503 unavailable")
}

func TestGenerateImageAdAttachesImagesPositionally(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) { return creativesJSON(t, 3), nil }}
	images := &fakeImages{}
	svc := NewService(text, images, staticKey("k"))

	got, err := svc.Generate(context.Background(), testForm(models.GoalImageAd, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int32(3), images.calls.Load())

	for i, c := range got {
		raw, err := base64.StdEncoding.DecodeString(c.ImageURL)
		require.NoError(t, err)
		assert.Contains(t, string(raw), fmt.Sprintf("H%d заголовок", i+1), "image %d belongs to creative %d", i, i)
		assert.Contains(t, string(raw), "Взрослые 25-40")
	}
}

func TestGenerateFailsWhenAnyImageFails(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) { return creativesJSON(t, 3), nil }}
	images := &fakeImages{fail: func(prompt string) bool { return strings.Contains(prompt, "H2 ") }}
	svc := NewService(text, images, staticKey("k"))

	got, err := svc.Generate(context.Background(), testForm(models.GoalImageAd, 3))
	assert.ErrorIs(t, err, ErrImageGeneration)
	assert.ErrorContains(t, err, "creative 2")
	assert.Nil(t, got, "no partial creative set")
}

func TestMissingCredentialFailsFast(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) { return "[]", nil }}
	images := &fakeImages{}
	svc := NewService(text, images, staticKey(""))
	ctx := context.Background()

	_, err := svc.Extract(ctx, "content", "", models.ModelFast)
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = svc.Generate(ctx, testForm(models.GoalImageAd, 1))
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = svc.Refine(ctx, []models.AdCreative{creative(1)}, "короче", testForm(models.GoalTextAd, 1))
	assert.ErrorIs(t, err, ErrMissingCredential)

	_, err = svc.Image(ctx, "кот")
	assert.ErrorIs(t, err, ErrMissingCredential)

	assert.Empty(t, text.calls)
	assert.Zero(t, images.calls.Load())
}

func TestExtract(t *testing.T) {
	t.Run("empty content makes no call", func(t *testing.T) {
		text := &fakeText{response: func(providers.TextRequest) (string, error) { return "{}", nil }}
		svc := NewService(text, &fakeImages{}, staticKey("k"))

		_, err := svc.Extract(context.Background(), "  \n\t ", "notes.txt", models.ModelFast)
		assert.ErrorIs(t, err, ErrExtraction)
		assert.Empty(t, text.calls)
	})

	t.Run("parses schema reply", func(t *testing.T) {
		text := &fakeText{response: func(providers.TextRequest) (string, error) {
			return `{"productDescription":"Школа","targetAudience":"Взрослые","usp":["A","B","C"]}`, nil
		}}
		svc := NewService(text, &fakeImages{}, staticKey("k"))

		info, err := svc.Extract(context.Background(), "Лендинг школы", "", models.ModelPro)
		require.NoError(t, err)
		assert.Equal(t, ExtractedInfo{ProductDescription: "Школа", TargetAudience: "Взрослые", USP: []string{"A", "B", "C"}}, info)
		require.Len(t, text.calls, 1)
		assert.Equal(t, string(models.ModelPro), text.calls[0].Model)
		assert.Contains(t, text.calls[0].Prompt, "Лендинг школы")
	})

	t.Run("rejects reply missing a field", func(t *testing.T) {
		text := &fakeText{response: func(providers.TextRequest) (string, error) {
			return `{"productDescription":"Школа","usp":["A"]}`, nil
		}}
		svc := NewService(text, &fakeImages{}, staticKey("k"))

		_, err := svc.Extract(context.Background(), "Лендинг", "", models.ModelFast)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("rejects undeclared keys", func(t *testing.T) {
		text := &fakeText{response: func(providers.TextRequest) (string, error) {
			return `{"productDescription":"Школа","targetAudience":"Взрослые","usp":["A"],"price":"990","notes":"скидки"}`, nil
		}}
		svc := NewService(text, &fakeImages{}, staticKey("k"))

		_, err := svc.Extract(context.Background(), "Лендинг", "", models.ModelFast)
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("converts html to markdown", func(t *testing.T) {
		text := &fakeText{response: func(providers.TextRequest) (string, error) {
			return `{"productDescription":"a","targetAudience":"b","usp":[]}`, nil
		}}
		svc := NewService(text, &fakeImages{}, staticKey("k"))

		_, err := svc.Extract(context.Background(), "<html><body><h1>Школа</h1><p>Уроки <b>онлайн</b></p></body></html>", "page.html", models.ModelFast)
		require.NoError(t, err)
		prompt := text.calls[0].Prompt
		assert.Contains(t, prompt, "# Школа")
		assert.Contains(t, prompt, "**онлайн**")
		assert.NotContains(t, prompt, "<body>")
	})

	t.Run("url only is unsupported", func(t *testing.T) {
		svc := NewService(&fakeText{}, &fakeImages{}, staticKey("k"))
		_, err := svc.ExtractURL(context.Background(), "https://example.ru")
		assert.ErrorIs(t, err, ErrExtraction)
		assert.ErrorIs(t, err, ErrURLUnsupported)
	})
}

func withImages(list []models.AdCreative) []models.AdCreative {
	for i := range list {
		list[i].ImageURL = base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("original-%d", i)))
	}
	return list
}

func TestRefineImageInstructionKeepsText(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) {
		t.Fatal("text model must not be called for image edits")
		return "", nil
	}}
	images := &fakeImages{}
	svc := NewService(text, images, staticKey("k"))

	current := withImages([]models.AdCreative{creative(1), creative(2), creative(3)})
	before := models.CloneCreatives(current)

	got, err := svc.Refine(context.Background(), current, "Замени картинку на фото с котом", testForm(models.GoalImageAd, 3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int32(3), images.calls.Load())

	for i := range got {
		assert.True(t, got[i].SameText(before[i]))
		assert.NotEqual(t, before[i].ImageURL, got[i].ImageURL)
		raw, _ := base64.StdEncoding.DecodeString(got[i].ImageURL)
		assert.Contains(t, string(raw), "фото с котом")
		assert.Contains(t, string(raw), "Онлайн-школа английского")
	}
	assert.Equal(t, before, current, "input is not mutated")
}

func TestRefineImageFailureFailsWhole(t *testing.T) {
	images := &fakeImages{fail: func(string) bool { return true }}
	svc := NewService(&fakeText{}, images, staticKey("k"))

	got, err := svc.Refine(context.Background(), withImages([]models.AdCreative{creative(1)}), "сделай новую картинку", testForm(models.GoalImageAd, 1))
	assert.ErrorIs(t, err, ErrImageGeneration)
	assert.Nil(t, got)
}

func TestRefineTextKeepsImages(t *testing.T) {
	text := &fakeText{response: func(req providers.TextRequest) (string, error) {
		var list []models.AdCreative
		start := strings.Index(req.Prompt, "[")
		if err := json.Unmarshal([]byte(req.Prompt[start:]), &list); err != nil {
			return "", err
		}
		for i := range list {
			list[i].Headline1 = strings.ToUpper(list[i].Headline1)
		}
		data, _ := json.Marshal(list)
		return string(data), nil
	}}
	svc := NewService(text, &fakeImages{}, staticKey("k"))

	current := withImages([]models.AdCreative{creative(1), creative(2)})
	got, err := svc.Refine(context.Background(), current, "сделай заголовки громче", testForm(models.GoalImageAd, 2))
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range got {
		assert.Equal(t, current[i].ImageURL, got[i].ImageURL)
		assert.Equal(t, strings.ToUpper(current[i].Headline1), got[i].Headline1)
	}
	assert.NotContains(t, text.calls[0].Prompt, current[0].ImageURL, "image bytes are not sent to the text model")
	assert.Contains(t, text.calls[0].Prompt, `"сделай заголовки громче"`)
}

func TestRefineTextRejectsLengthMismatch(t *testing.T) {
	text := &fakeText{response: func(providers.TextRequest) (string, error) { return creativesJSON(t, 1), nil }}
	svc := NewService(text, &fakeImages{}, staticKey("k"))

	_, err := svc.Refine(context.Background(), []models.AdCreative{creative(1), creative(2)}, "короче", testForm(models.GoalTextAd, 2))
	assert.ErrorIs(t, err, ErrRefinement)
}

func TestRefineUsesInjectedClassifier(t *testing.T) {
	images := &fakeImages{}
	svc := NewService(&fakeText{}, images, staticKey("k"),
		WithClassifier(ClassifierFunc(func(string) Intent { return ImageEdit })))

	_, err := svc.Refine(context.Background(), []models.AdCreative{creative(1)}, "make it blue", testForm(models.GoalImageAd, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(1), images.calls.Load())
}

func TestImage(t *testing.T) {
	t.Run("returns bytes", func(t *testing.T) {
		svc := NewService(&fakeText{}, &fakeImages{}, staticKey("k"))
		img, err := svc.Image(context.Background(), "кот")
		require.NoError(t, err)
		assert.Contains(t, string(img), imagePromptPrefix+"кот")
	})

	t.Run("zero images", func(t *testing.T) {
		svc := NewService(&fakeText{}, &fakeImages{fail: func(string) bool { return true }}, staticKey("k"))
		_, err := svc.Image(context.Background(), "кот")
		assert.ErrorIs(t, err, ErrImageGeneration)
	})
}

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		instruction string
		expected    Intent
	}{
		{"замени картинку на закат", ImageEdit},
		{"Поменяй изображение", ImageEdit},
		{"хочу другую картинку", ImageEdit},
		{"СМЕНИ ИЗОБРАЖЕНИЕ", ImageEdit},
		{"замени заголовок", TextEdit},
		{"картинку оставь, сократи текст", TextEdit},
		{"make the headline shorter", TextEdit},
	}

	c := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Classify(tt.instruction))
		})
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))
	assert.Contains(t, UserMessage(fmt.Errorf("%w: x", ErrMissingCredential)), "API-ключ")
	assert.Contains(t, UserMessage(fmt.Errorf("%w: %w", ErrExtraction, ErrURLUnsupported)), "URL")
	assert.Contains(t, UserMessage(ErrImageGeneration), "изображение")
	assert.Contains(t, UserMessage(errors.New("boom")), "неизвестная")
}
