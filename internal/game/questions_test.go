/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadQuestions_BuiltIn(t *testing.T) {
	q, err := LoadQuestions("")
	require.NoError(t, err)
	assert.NotEmpty(t, q)

	for _, pair := range q {
		assert.NotEmpty(t, pair.Real)
		assert.NotEmpty(t, pair.Fake)
		assert.NotEqual(t, pair.Real, pair.Fake)
	}
}

func TestLoadQuestions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"real":" Favorite food? ","fake":"Least favorite food?"}]`), 0o644))

	q, err := LoadQuestions(path)
	require.NoError(t, err)
	assert.Equal(t, Questions{{Real: "Favorite food?", Fake: "Least favorite food?"}}, q)

	_, err = LoadQuestions(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseQuestions_Invalid(t *testing.T) {
	for _, data := range []string{
		`not json`,
		`[]`,
		`[{"real":"only real"}]`,
		`[{"real":"ok","fake":"ok"},{"real":" ","fake":"x"}]`,
	} {
		_, err := ParseQuestions([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestQuestionsPick(t *testing.T) {
	q := Questions{{Real: "a", Fake: "b"}, {Real: "c", Fake: "d"}}
	rng := rand.New(rand.NewPCG(7, 7))

	seen := map[string]bool{}
	for range 100 {
		seen[q.Pick(rng).Real] = true
	}

	assert.Len(t, seen, 2)
}
