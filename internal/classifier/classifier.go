package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/models"
)

// Classifier assigns a query to one of the fixed categories with a
// confidence in [0,1].
type Classifier interface {
	Classify(query string) models.ClassifierResult
}

// Model is the serialized form of a trained multinomial naive Bayes
// classifier. feature_log_prob holds one row per class over the shared
// vocabulary; default_log_prob is the per-class smoothing mass applied
// to out-of-vocabulary tokens.
type Model struct {
	Classes        []string       `json:"classes"`
	ClassLogPrior  []float64      `json:"class_log_prior"`
	Vocabulary     map[string]int `json:"vocabulary"`
	FeatureLogProb [][]float64    `json:"feature_log_prob"`
	DefaultLogProb []float64      `json:"default_log_prob"`
}

// NaiveBayes scores queries against a loaded Model. It is immutable and
// safe for concurrent use.
type NaiveBayes struct {
	model Model
}

// LoadModel reads a JSON model artifact from disk and validates its
// shape before use.
func LoadModel(path string) (*NaiveBayes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to parse classifier model: %v", err)
	}

	n := len(model.Classes)
	if n == 0 {
		return nil, fmt.Errorf("classifier model has no classes")
	}
	if len(model.ClassLogPrior) != n || len(model.FeatureLogProb) != n || len(model.DefaultLogProb) != n {
		return nil, fmt.Errorf("classifier model arrays disagree on class count")
	}
	for i, row := range model.FeatureLogProb {
		if len(row) != len(model.Vocabulary) {
			return nil, fmt.Errorf("feature row %d has %d entries, vocabulary has %d", i, len(row), len(model.Vocabulary))
		}
	}

	return &NaiveBayes{model: model}, nil
}

// Classify tokenizes the query and returns the highest-probability
// category with softmax-normalized confidence.
func (nb *NaiveBayes) Classify(query string) models.ClassifierResult {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return degradedResult()
	}

	scores := make([]float64, len(nb.model.Classes))
	copy(scores, nb.model.ClassLogPrior)

	for _, tok := range tokens {
		if col, ok := nb.model.Vocabulary[tok]; ok {
			for c := range scores {
				scores[c] += nb.model.FeatureLogProb[c][col]
			}
		} else {
			for c := range scores {
				scores[c] += nb.model.DefaultLogProb[c]
			}
		}
	}

	probs := softmax(scores)

	best := 0
	for c := range probs {
		if probs[c] > probs[best] {
			best = c
		}
	}

	result := models.ClassifierResult{
		Category:      models.NormalizeCategory(nb.model.Classes[best]),
		Confidence:    probs[best],
		Probabilities: make(map[models.Category]float64, len(probs)),
	}
	for c, p := range probs {
		result.Probabilities[models.NormalizeCategory(nb.model.Classes[c])] = p
	}
	return result
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(s - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Degraded is the classifier used when no model artifact is available.
// Every query maps to General Information with zero confidence, which
// pushes routing onto the general default chain.
type Degraded struct{}

func (Degraded) Classify(string) models.ClassifierResult {
	return degradedResult()
}

func degradedResult() models.ClassifierResult {
	return models.ClassifierResult{
		Category:   models.CategoryGeneral,
		Confidence: 0,
	}
}

// LoadOrDegrade loads the model at path, falling back to the Degraded
// classifier when the artifact is missing or unreadable. Startup never
// fails because of the classifier.
func LoadOrDegrade(path string) Classifier {
	nb, err := LoadModel(path)
	if err != nil {
		logger.Warn("Classifier model unavailable, degrading to general category", "path", path, "error", err)
		return Degraded{}
	}
	logger.Info("Classifier model loaded", "path", path, "classes", len(nb.model.Classes))
	return nb
}
