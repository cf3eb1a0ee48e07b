package engine

import (
	"fmt"
	"strings"
)

// The translation prompts pin down the structural contract: body text
// only, and the %% separator carries paragraph boundaries through the
// model so parity can be enforced on the way back.
const translationSystemPrompt = `You are a professional {{to}} translator.
STRICT RULES:
- Output ONLY the clean body text, nothing else.
- DO NOT output notes, remarks, timestamps, media names, sources, authors, copyright, image captions, ads, disclaimers, or titles.
- Keep EXACT paragraph count as input; use %% as separator for multi-paragraph input.
`

const translationUserPrompt = "Translate to {{to}}. Output clean body only. Do not add any notes or metadata.\n\n{{text}}"

const editorSystemPrompt = "You are a professional news editor. Output strictly the clean body only."

func buildTranslationPrompts(text, targetLang string) (string, string) {
	sys := strings.ReplaceAll(translationSystemPrompt, "{{to}}", targetLang)
	usr := strings.ReplaceAll(translationUserPrompt, "{{to}}", targetLang)
	usr = strings.ReplaceAll(usr, "{{text}}", text)
	return sys, usr
}

func buildEditorPrompts(text string, minWords int) (string, string) {
	instruction := fmt.Sprintf(
		"Ensure the output has at least %d words without adding metadata. "+
			"Keep meaning and style; output clean English body only. "+
			"Split paragraphs clearly; use %%%% to separate if needed.", minWords)
	return editorSystemPrompt, instruction + "\n\n" + text
}

func buildTitlePrompts(title, targetLang string) (string, string) {
	sys := fmt.Sprintf("You are a professional %s title translator. Output only the translation.", targetLang)
	usr := fmt.Sprintf("Translate to %s:\n\n%s", targetLang, title)
	return sys, usr
}
