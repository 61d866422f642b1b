package summary

import (
	"strings"

	"github.com/telegram-summary-bot/internal/models"
)

// promptSet is the fixed-shape record of prompt templates for one language.
// Direct expects (transcript, maxLength, marker); Chunk expects (index,
// total, transcript); Synthesis expects (partials, maxLength, marker).
type promptSet struct {
	System    string
	Direct    string
	Chunk     string
	Synthesis string
}

// promptsFor resolves the prompt record for a language code once per request,
// falling back to the default language for unknown codes.
func promptsFor(language string) promptSet {
	if set, ok := promptTable[strings.ToLower(strings.TrimSpace(language))]; ok {
		return set
	}
	return promptTable[models.DefaultLanguage]
}

var promptTable = map[string]promptSet{
	"en": {
		System: "You summarize group chat conversations. Write naturally and neutrally, " +
			"in plain prose without markdown headings. Mention who said what and when. " +
			"Never invent events that are not in the transcript.",
		Direct: "Summarize the following chat transcript.\n\n%s\n\n" +
			"Requirements:\n" +
			"- Keep the summary under %d characters.\n" +
			"- Reference times of day (like 14:30) and speaker names.\n" +
			"- Write only in English.\n" +
			"- End the summary with %s",
		Chunk: "This is part %d of %d of a longer chat transcript. " +
			"Summarize just this part, preserving chronological order, times of day " +
			"and speaker names. Do not add conclusions about the whole conversation.\n\n%s",
		Synthesis: "Below are partial summaries of consecutive parts of one chat " +
			"conversation, separated by ---. Merge them into a single coherent summary " +
			"that stays chronologically faithful.\n\n%s\n\n" +
			"Requirements:\n" +
			"- Keep the summary under %d characters.\n" +
			"- Keep times of day and speaker names.\n" +
			"- Write only in English.\n" +
			"- End the summary with %s",
	},
	"ru": {
		System: "Ты составляешь краткие пересказы групповых чатов. Пиши естественно и " +
			"нейтрально, обычной прозой без markdown-заголовков. Указывай, кто и когда " +
			"что сказал. Не выдумывай события, которых нет в переписке.",
		Direct: "Составь краткий пересказ следующей переписки.\n\n%s\n\n" +
			"Требования:\n" +
			"- Уложись в %d символов.\n" +
			"- Упоминай время (например, 14:30) и имена участников.\n" +
			"- Пиши только на русском языке.\n" +
			"- Заверши пересказ меткой %s",
		Chunk: "Это часть %d из %d длинной переписки. Перескажи только эту часть, " +
			"сохраняя хронологию, время и имена участников. Не делай выводов обо всей " +
			"беседе.\n\n%s",
		Synthesis: "Ниже даны пересказы последовательных частей одной переписки, " +
			"разделённые ---. Объедини их в один связный хронологичный пересказ.\n\n%s\n\n" +
			"Требования:\n" +
			"- Уложись в %d символов.\n" +
			"- Сохрани время и имена участников.\n" +
			"- Пиши только на русском языке.\n" +
			"- Заверши пересказ меткой %s",
	},
	"es": {
		System: "Resumes conversaciones de chats grupales. Escribe de forma natural y " +
			"neutral, en prosa simple sin encabezados markdown. Menciona quién dijo qué " +
			"y cuándo. Nunca inventes hechos que no estén en la transcripción.",
		Direct: "Resume la siguiente transcripción de chat.\n\n%s\n\n" +
			"Requisitos:\n" +
			"- No superes los %d caracteres.\n" +
			"- Menciona horas del día (como 14:30) y nombres de los participantes.\n" +
			"- Escribe solo en español.\n" +
			"- Termina el resumen con %s",
		Chunk: "Esta es la parte %d de %d de una transcripción larga. Resume solo esta " +
			"parte, conservando el orden cronológico, las horas y los nombres. No saques " +
			"conclusiones sobre toda la conversación.\n\n%s",
		Synthesis: "A continuación hay resúmenes parciales de partes consecutivas de una " +
			"misma conversación, separados por ---. Fusiónalos en un único resumen " +
			"coherente y cronológicamente fiel.\n\n%s\n\n" +
			"Requisitos:\n" +
			"- No superes los %d caracteres.\n" +
			"- Conserva horas y nombres.\n" +
			"- Escribe solo en español.\n" +
			"- Termina el resumen con %s",
	},
}
