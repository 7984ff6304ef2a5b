package debate

// Localized terminal texts. Only the server utters these; the LLM is
// prompt-constrained never to self-conclude, and anything it emits that looks
// like an ending is stripped by SanitizeEndMarkers.

const fallbackLang = "en"

var verdictLine = map[string]string{
	"en": "On balance, the opposing argument addressed key counters with evidence and causality. I concede the point.",
	"es": "En conjunto, el argumento contrario abordó los puntos clave con evidencia y causalidad. Cedo el punto.",
	"pt": "No conjunto, o argumento oposto tratou os pontos-chave com evidência e causalidade. Eu cedo o ponto.",
	"fr": "Dans l'ensemble, l'argument adverse a répondu aux points clés avec des preuves et une chaîne causale. J'accorde le point.",
	"de": "Insgesamt hat das Gegenargument die wichtigsten Einwände mit Belegen und Kausalität adressiert. Ich gebe den Punkt ab.",
	"it": "Nel complesso, l'argomentazione opposta ha affrontato i punti chiave con prove e causalità. Concedo il punto.",
}

var afterEndLine = map[string]string{
	"en": "The debate has already ended. Please start a new conversation if you want to debate another topic.",
	"es": "El debate ya terminó. Por favor inicia una nueva conversación si quieres debatir otro tema.",
	"pt": "O debate já terminou. Por favor, inicie uma nova conversa se quiser debater outro tema.",
	"fr": "Le débat est déjà terminé. Veuillez démarrer une nouvelle conversation pour débattre d'un autre sujet.",
	"de": "Die Debatte ist bereits beendet. Bitte starte eine neue Unterhaltung, um ein anderes Thema zu debattieren.",
	"it": "Il dibattito è già terminato. Avvia una nuova conversazione se vuoi discutere un altro argomento.",
}

// BuildVerdict returns the localized verdict sentence for the state's
// language, falling back to English for unknown or unlocked languages.
func BuildVerdict(state *DebateState) string {
	return localized(verdictLine, state.Lang)
}

// AfterEndMessage returns the localized reply for turns arriving after the
// match has concluded.
func AfterEndMessage(state *DebateState) string {
	return localized(afterEndLine, state.Lang)
}

func localized(table map[string]string, lang string) string {
	if s, ok := table[lang]; ok {
		return s
	}
	return table[fallbackLang]
}
