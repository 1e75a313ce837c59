/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

//go:embed questions.json
var defaultQuestions []byte

// Question is a pair of prompts: most players see Real, the imposter sees Fake.
type Question struct {
	Real string `json:"real"`
	Fake string `json:"fake"`
}

// QuestionSource hands out a random question for each round.
type QuestionSource interface {
	Pick(rng *rand.Rand) Question
}

// Questions is an immutable question list loaded once at startup.
type Questions []Question

func (q Questions) Pick(rng *rand.Rand) Question {
	return q[rng.IntN(len(q))]
}

// ParseQuestions decodes and validates a JSON array of question pairs.
func ParseQuestions(data []byte) (Questions, error) {
	var q Questions
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}

	if len(q) == 0 {
		return nil, errors.New("question list is empty")
	}

	for i := range q {
		q[i].Real = strings.TrimSpace(q[i].Real)
		q[i].Fake = strings.TrimSpace(q[i].Fake)

		if q[i].Real == "" || q[i].Fake == "" {
			return nil, fmt.Errorf("question %d is missing its real or fake text", i)
		}
	}

	return q, nil
}

// LoadQuestions reads questions from path, or the built-in set when path is empty.
func LoadQuestions(path string) (Questions, error) {
	if path == "" {
		return ParseQuestions(defaultQuestions)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseQuestions(data)
}
