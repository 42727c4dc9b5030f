package lex

import (
	"testing"

	"github.com/synthizer/waveling/pkg/source"
	"github.com/synthizer/waveling/pkg/util/assert"
)

func scan(t *testing.T, text string) ([]Token, *source.Sink) {
	t.Helper()

	file := source.NewFile("<test>", []byte(text))
	sink := source.NewSink()
	tokens := NewLexer(file, sink).Tokenize()

	return tokens, sink
}

func TestLexer_Empty(t *testing.T) {
	tokens, sink := scan(t, "")

	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, len(tokens))
	assert.Equal(t, EOF, tokens[0].Kind)
}

func TestLexer_Identifiers(t *testing.T) {
	tokens, sink := scan(t, "a foo_bar _x2")

	assert.False(t, sink.HasErrors())
	assert.Equal(t, 4, len(tokens))
	assert.Equal(t, "a", tokens[0].Text)
	assert.Equal(t, "foo_bar", tokens[1].Text)
	assert.Equal(t, "_x2", tokens[2].Text)
}

func TestLexer_Numbers(t *testing.T) {
	tokens, sink := scan(t, "1 1f64 0xffi64 2.5f32")

	assert.False(t, sink.HasErrors())
	assert.Equal(t, NUMBER, tokens[0].Kind)
	assert.Equal(t, NoSuffix, tokens[0].Suffix)
	assert.Equal(t, SuffixF64, tokens[1].Suffix)
	assert.Equal(t, true, tokens[2].IsHex)
	assert.Equal(t, float64(255), tokens[2].NumValue)
	assert.Equal(t, SuffixF32, tokens[3].Suffix)
}

func TestLexer_InvalidSuffix(t *testing.T) {
	_, sink := scan(t, "1bogus")

	assert.True(t, sink.HasErrors())
	assert.Equal(t, source.CodeLexical, sink.Diagnostics()[0].Code)
}

func TestLexer_StrayCharacter(t *testing.T) {
	_, sink := scan(t, "a $ b")

	assert.True(t, sink.HasErrors())
}

func TestLexer_Operators(t *testing.T) {
	tokens, sink := scan(t, "-> <- << >> <= >= == != && ||")

	assert.False(t, sink.HasErrors())

	want := []Kind{ARROW_RIGHT, ARROW_LEFT, SHL, SHR, LE, GE, EQ, NE, ANDAND, OROR, EOF}
	for i, k := range want {
		assert.Equal(t, k, tokens[i].Kind)
	}
}

func TestLexer_LineComment(t *testing.T) {
	tokens, sink := scan(t, "a // comment\nb")

	assert.False(t, sink.HasErrors())
	assert.Equal(t, 3, len(tokens))
	assert.Equal(t, "a", tokens[0].Text)
	assert.Equal(t, "b", tokens[1].Text)
}
