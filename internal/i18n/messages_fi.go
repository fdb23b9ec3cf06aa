package i18n

// loadFinnishMessages loads all Finnish translations.
func loadFinnishMessages() {
	messages[LangFI] = map[string]string{
		// Common
		"app.name":        "haku",
		"app.description": "Avustaja, joka vastaa omien dokumenttiesi pohjalta",
		"app.version":     "haku v%s",
		"goodbye":         "Näkemiin!",

		// Chat TUI
		"chat.placeholder": "Kysy mitä tahansa dokumenteistasi...",
		"chat.prompt":      "Sinä> ",
		"chat.assistant":   "haku> ",
		"chat.thinking":    "Ajattelen...",
		"chat.canceled":    "(peruutettu)",
		"chat.timeout":     "Vastauksen aikakatkaisu (5 min). Kokeile lyhyempää kysymystä.",
		"chat.error":       "Virhe: ",
		"chat.help": "Komennot: /help, /clear, /sources, /quit\n" +
			"Näppäimet:\n" +
			"  Enter: lähetä\n" +
			"  Shift+Enter: uusi rivi\n" +
			"  Ctrl+C: peruuta/tyhjennä\n" +
			"  Ctrl+D: lopeta\n" +
			"  Ylös/Alas: syötehistoria\n" +
			"  PgUp/PgDn: vieritä",
		"chat.unknown_command": "Tuntematon komento: %s",
		"chat.sources.title":   "Viimeisimmän vastauksen lähteet:",
		"chat.sources.none":    "Ei lähteitä vielä. Kysy ensin jotakin.",

		// Welcome tips under the banner
		"tips.title":   "Vinkkejä alkuun:",
		"tips.ask":     "  • Vastaukset perustuvat omiin dokumentteihisi",
		"tips.help":    "  • /help näyttää komennot, /sources viimeisimmät lähteet",
		"tips.quit":    "  • Ctrl+C peruuttaa, Ctrl+D lopettaa",
		"tips.history": "  • Nuolet ylös/alas selaavat syötehistoriaa",

		// CLI
		"sessions.title":    "Istunnot:",
		"sessions.empty":    "Ei istuntoja vielä.",
		"sessions.untitled": "(nimetön)",
		"sessions.created":  "Uusi istunto %s aloitettu.",
		"sessions.switched": "Siirryttiin istuntoon %s.",
		"sessions.renamed":  "Istunto %s nimettiin uudelleen.",
		"sessions.deleted":  "Istunto %s poistettu.",
		"sessions.cleared":  "Kaikki istunnot poistettu.",
		"search.empty":      "Ei osumia.",
		"ingest.done":       "Tallennettu %d palaa (%d tokenia) lähteestä %s",
		"ingest.skipped":    "Ohitettiin %s: %v",
		"setup.done":        "Tietokannan rakenne on valmis.",
		"setup.sample":      "Esimerkkidokumentit ladattu.",
		"serve.listening":   "HTTP-rajapinta kuuntelee osoitteessa %s",

		// Relative timestamps in session listings
		"time.just_now":    "juuri äsken",
		"time.minutes_ago": "%d minuuttia sitten",
		"time.hours_ago":   "%d tuntia sitten",
		"time.days_ago":    "%d päivää sitten",

		// Help screen
		"help.text": "haku - Avustaja, joka vastaa omien dokumenttiesi pohjalta\n" +
			"\n" +
			"Käyttö:\n" +
			"  haku chat              Aloita vuorovaikutteinen keskustelu\n" +
			"  haku ask <kysymys>     Vastaa yhteen kysymykseen ja lopeta\n" +
			"  haku ingest <kohde>    Lataa tiedosto, hakemisto tai URL tietämyskantaan\n" +
			"  haku search <haku>     Samankaltaisuushaku ilman vastauksen luontia\n" +
			"  haku sessions          Listaa ja hallitse tallennettuja keskusteluja\n" +
			"  haku serve [osoite]    Käynnistä HTTP-rajapinta (oletus: 127.0.0.1:3400)\n" +
			"  haku mcp               Käynnistä MCP-palvelin stdio-liikenteellä\n" +
			"  haku setup             Valmistele tietokanta (-sample-data lataa esimerkit)\n" +
			"  haku version           Näytä versiotiedot\n" +
			"  haku help              Näytä tämä ohje\n" +
			"\n" +
			"Keskustelukomennot:\n" +
			"  /help                  Näytä komennot\n" +
			"  /sources               Näytä viimeisimmän vastauksen lähteet\n" +
			"  /clear                 Tyhjennä keskustelunäkymä\n" +
			"  /exit, /quit           Poistu keskustelusta\n" +
			"\n" +
			"Ympäristömuuttujat:\n" +
			"  OPENAI_API_KEY         Oletuspalvelun API-avain\n" +
			"  HAKU_LANG              Käyttöliittymän kieli (en, fi)\n" +
			"  DEBUG                  Ota virheenjäljitysloki käyttöön",
	}
}
