package contract

import (
	"regexp"
)

// Intent is what a refinement instruction asks for
type Intent int

const (
	TextEdit Intent = iota
	ImageEdit
)

func (i Intent) String() string {
	if i == ImageEdit {
		return "image_edit"
	}
	return "text_edit"
}

// Classifier routes a refinement instruction to the text or image path
type Classifier interface {
	Classify(instruction string) Intent
}

// ClassifierFunc adapts a function to Classifier
type ClassifierFunc func(string) Intent

func (f ClassifierFunc) Classify(instruction string) Intent { return f(instruction) }

// KeywordClassifier flags an instruction as an image edit when it contains
// both a replacement verb and an image noun.
type KeywordClassifier struct {
	Verb   *regexp.Regexp
	Object *regexp.Regexp
}

// DefaultClassifier recognises Russian requests such as "замени картинку на ..."
func DefaultClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		Verb:   regexp.MustCompile(`(?i)замени|поменяй|смени|другую|новую`),
		Object: regexp.MustCompile(`(?i)картинку|изображение`),
	}
}

func (k *KeywordClassifier) Classify(instruction string) Intent {
	if k.Verb.MatchString(instruction) && k.Object.MatchString(instruction) {
		return ImageEdit
	}
	return TextEdit
}
