package phonetic

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
	"golang.org/x/text/width"

	"github.com/japaniel/textselect/pkg/lexicon"
)

// Pause is the unit emitted at sentence edges and for punctuation.
const Pause = "pau"

// Analyzer turns Japanese sentences into mora sequences.
type Analyzer struct {
	t   *tokenizer.Tokenizer
	lex *lexicon.Lexicon
}

// NewAnalyzer creates a new tokenizer instance. lex may be nil.
func NewAnalyzer(lex *lexicon.Lexicon) (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t, lex: lex}, nil
}

// Phones returns the mora sequence of text framed by pauses. Symbols turn
// into a single pause and tokens without any reading are dropped.
func (a *Analyzer) Phones(text string) []string {
	seq := []string{Pause}
	pause := func() {
		if seq[len(seq)-1] != Pause {
			seq = append(seq, Pause)
		}
	}

	for _, token := range a.t.Tokenize(width.Fold.String(text)) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if strings.TrimSpace(token.Surface) == "" {
			continue
		}

		// Kagome IPA features:
		// 0: Part of Speech, 6: Base Form, 7: Reading, 8: Pronunciation
		features := token.Features()
		if len(features) > 0 && features[0] == "記号" {
			pause()
			continue
		}

		seq = append(seq, Morae(a.reading(token.Surface, features))...)
	}
	pause()
	return seq
}

func (a *Analyzer) reading(surface string, features []string) string {
	lemma := ""
	if len(features) > 6 && features[6] != "*" {
		lemma = features[6]
	}
	if r, ok := a.lex.Lookup(surface, lemma); ok {
		return r
	}
	// Prefer the pronunciation column: it spells particles as spoken.
	for _, i := range []int{8, 7} {
		if len(features) > i && features[i] != "*" && lexicon.IsKana(features[i]) {
			return lexicon.ToKatakana(features[i])
		}
	}
	if lexicon.IsKana(surface) {
		return lexicon.ToKatakana(surface)
	}
	return ""
}

// Morae splits a kana string into morae. Small vowel and glide kana attach
// to the preceding mora.
func Morae(kana string) []string {
	var out []string
	for _, r := range lexicon.ToKatakana(kana) {
		if isSmall(r) && len(out) > 0 {
			out[len(out)-1] += string(r)
			continue
		}
		out = append(out, string(r))
	}
	return out
}

func isSmall(r rune) bool {
	switch r {
	case 'ァ', 'ィ', 'ゥ', 'ェ', 'ォ', 'ャ', 'ュ', 'ョ', 'ヮ':
		return true
	}
	return false
}
