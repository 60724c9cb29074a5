package translator

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `You are a professional %s localizer for Persona 3 FES, a PlayStation 2 JRPG.

Rules:
1. Translate %s to %s.
2. Preserve ALL sentinels like {{tok_1}}, {{tok_2}}, etc. — copy them exactly as-is into your translation, same count, same spelling.
3. Never translate proper nouns or Persona terminology listed in the reference.
4. Output ONLY the translation, nothing else.
5. Do NOT add explanations, notes, or extra text.
6. Game UI text must stay concise; the translation is written back into a fixed binary slot.
7. Maintain the tone and register of the original dialogue.`

var localeNames = map[string]string{
	"en": "English",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"ja": "Japanese",
}

func localeName(code string) string {
	if n, ok := localeNames[code]; ok {
		return n
	}
	return code
}

// SystemPrompt returns the system instruction for a source→target pair.
func SystemPrompt(source, target string) string {
	return fmt.Sprintf(systemPromptTemplate, localeName(target), localeName(source), localeName(target))
}

// BuildUserPrompt combines optional retrieval context with the text to
// translate.
func BuildUserPrompt(text, promptContext string) string {
	var sb strings.Builder
	if promptContext != "" {
		sb.WriteString(promptContext)
		if !strings.HasSuffix(promptContext, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Text to translate:\n")
	sb.WriteString(text)
	return sb.String()
}

// BuildContextString formats glossary terms and translation-memory matches
// for the prompt. Terms come first; they are authoritative.
func BuildContextString(terms map[string]string, similar []string) string {
	var sb strings.Builder

	if len(terms) > 0 {
		sb.WriteString("=== Terminology Reference (keep as-is) ===\n")
		for src, dst := range terms {
			sb.WriteString(fmt.Sprintf("• %s → %s\n", src, dst))
		}
		sb.WriteString("\n")
	}

	if len(similar) > 0 {
		sb.WriteString("=== Similar Past Translations ===\n")
		for _, s := range similar {
			sb.WriteString("• " + s + "\n")
		}
	}

	return sb.String()
}
