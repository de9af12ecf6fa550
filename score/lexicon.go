package score

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicons/*.yaml
var embeddedLexicons embed.FS

// Lexicon is the per-language keyword set the Scorer matches against.
// Defaults cover Indonesian and English; a custom lexicon file (same
// shape) can be loaded per job language.
type Lexicon struct {
	Language               string   `yaml:"language"`
	Hook                   []string `yaml:"hook"`
	Emotional              []string `yaml:"emotional"`
	Controversial          []string `yaml:"controversial"`
	Educational            []string `yaml:"educational"`
	Entertaining           []string `yaml:"entertaining"`
	Money                  []string `yaml:"money"`
	Urgency                []string `yaml:"urgency"`
	Filler                 []string `yaml:"filler"`
	MidSentenceTransitions []string `yaml:"mid_sentence_transitions"`
	ConclusionPhrases      []string `yaml:"conclusion_phrases"`
}

func LoadEmbeddedLexicon(language string) (Lexicon, error) {
	path := fmt.Sprintf("lexicons/%s.yaml", language)
	data, err := embeddedLexicons.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("no embedded lexicon for language %q: %w", language, err)
	}
	return parseLexicon(data)
}

func LoadLexiconFile(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("reading lexicon file %s: %w", path, err)
	}
	return parseLexicon(data)
}

func parseLexicon(data []byte) (Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parsing lexicon: %w", err)
	}
	return lex, nil
}

// LexiconForLanguage resolves "auto" and unrecognized languages to
// English, matching the Transcriber's TRANSCRIBER_LANG=auto default.
func LexiconForLanguage(language string) (Lexicon, error) {
	switch strings.ToLower(language) {
	case "id", "ind", "indonesian":
		return LoadEmbeddedLexicon("id")
	default:
		return LoadEmbeddedLexicon("en")
	}
}
