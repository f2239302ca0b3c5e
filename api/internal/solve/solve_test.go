package solve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionValidate(t *testing.T) {
	ok := Solution{Subject: "Математика", Task: "2x+3=7", Steps: []string{"2x=4", "x=2"}, Answer: "x=2"}
	require.NoError(t, ok.Validate())

	tests := []struct {
		name string
		mut  func(*Solution)
		want error
	}{
		{"no subject", func(s *Solution) { s.Subject = "" }, ErrMissingField},
		{"no task", func(s *Solution) { s.Task = "  " }, ErrMissingField},
		{"no answer", func(s *Solution) { s.Answer = "" }, ErrMissingField},
		{"no steps", func(s *Solution) { s.Steps = nil }, ErrNoSteps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok.Clone()
			tt.mut(&s)
			assert.ErrorIs(t, s.Validate(), tt.want)
		})
	}
}

func TestSolutionClone(t *testing.T) {
	s := Solution{Steps: []string{"a", "b"}}
	c := s.Clone()
	c.Steps[0] = "z"
	assert.Equal(t, "a", s.Steps[0])
}

func TestFromModelOutput(t *testing.T) {
	t.Run("fenced json", func(t *testing.T) {
		sol, parsed := FromModelOutput("```json\n{\"subject\":\"Физика\",\"task\":\"F=ma\",\"steps\":[\"s1\",\"s2\"],\"answer\":\"10 Н\"}\n```")
		assert.True(t, parsed)
		assert.Equal(t, Solution{Subject: "Физика", Task: "F=ma", Steps: []string{"s1", "s2"}, Answer: "10 Н"}, sol)
	})
	t.Run("plain text", func(t *testing.T) {
		sol, parsed := FromModelOutput("Ответ: 42")
		assert.False(t, parsed)
		assert.Equal(t, Solution{Subject: FallbackSubject, Task: FallbackTask, Steps: []string{"Ответ: 42"}, Answer: FallbackAnswer}, sol)
	})
	t.Run("partial json", func(t *testing.T) {
		sol, parsed := FromModelOutput(`{"answer":"5"}`)
		assert.True(t, parsed)
		assert.Equal(t, FallbackSubject, sol.Subject)
		assert.Equal(t, FallbackTask, sol.Task)
		assert.Equal(t, "5", sol.Answer)
		assert.Equal(t, []string{`{"answer":"5"}`}, sol.Steps)
		assert.NoError(t, sol.Validate())
	})
}

func TestSubjectIcons(t *testing.T) {
	tests := []struct {
		name string
		want Icon
	}{
		{"Математика", IconCalculator},
		{"физика", IconAtom},
		{" Химия ", IconFlaskConical},
		{"Русский язык", IconBookOpen},
		{"История", IconBookOpen},
		{"", IconBookOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSubject(tt.name).Icon())
		})
	}
	assert.Equal(t, SubjectRussian, ParseSubject("русский язык"))
	assert.Equal(t, "🧮", IconCalculator.Emoji())
	assert.Equal(t, "📖", Icon("Unknown").Emoji())
}

func TestEncodedImage(t *testing.T) {
	img := EncodedImage("data:image/png;base64,aGVsbG8=")
	assert.Equal(t, "image/png", img.MediaType())
	b, err := img.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.Empty(t, EncodedImage("garbage").MediaType())
}
