package ingest

import (
	"context"
	"fmt"
)

// SampleDocument is one of the built-in Finnish seed documents.
type SampleDocument struct {
	Text     string
	Metadata map[string]any
}

// SampleDocuments returns the seed set used by setup --sample-data: three
// short Finnish texts about Finland, artificial intelligence, and Python.
// They give a fresh install something to answer questions about.
func SampleDocuments() []SampleDocument {
	return []SampleDocument{
		{
			Text: "Suomi on Pohjoismainen valtio, joka sijaitsee Euroopan pohjoisosassa.\n" +
				"Suomen pääkaupunki on Helsinki, ja maan väkiluku on noin 5,5 miljoonaa.\n" +
				"Suomi on tunnettu metsistään, järvistään ja saunastaan.\n" +
				"Maa kuuluu Euroopan unioniin ja sen valuutta on euro.",
			Metadata: map[string]any{"topic": "Suomi", "category": "maantieto"},
		},
		{
			Text: "Tekoäly (AI) on tietojenkäsittelytieteen ala, joka pyrkii luomaan älykkäitä koneita.\n" +
				"Koneoppiminen on tekoälyn osa-alue, jossa koneet oppivat datasta ilman eksplisiittistä ohjelmointia.\n" +
				"Syväoppiminen käyttää neuroverkkoja jäljittelemään ihmisaivojen toimintaa.\n" +
				"GPT-mallit ovat esimerkki suurista kielimalleista, jotka voivat tuottaa ihmismäistä tekstiä.",
			Metadata: map[string]any{"topic": "tekoäly", "category": "teknologia"},
		},
		{
			Text: "Python on korkean tason ohjelmointikieli, joka on tunnettu yksinkertaisuudestaan ja luettavuudestaan.\n" +
				"Se on suosittu datatieteessä, koneoppimisessa ja web-kehityksessä.\n" +
				"Python tarjoaa laajan kirjaston ekosysteemin, mukaan lukien NumPy, Pandas ja TensorFlow.\n" +
				"Kieli tukee useita ohjelmointiparadigmoja, mukaan lukien olio-ohjelmointi ja funktionaalinen ohjelmointi.",
			Metadata: map[string]any{"topic": "python", "category": "ohjelmointi"},
		},
	}
}

// SeedSamples ingests the built-in sample documents through the full text
// pipeline. It stops at the first document whose pipeline fails; documents
// seeded before the failure stay stored.
func (i *Ingestor) SeedSamples(ctx context.Context) ([]*Result, error) {
	samples := SampleDocuments()
	results := make([]*Result, 0, len(samples))

	for _, doc := range samples {
		res, err := i.LoadText(ctx, doc.Text, doc.Metadata)
		if err != nil {
			return results, fmt.Errorf("seeding sample %q: %w", doc.Metadata["topic"], err)
		}
		i.logger.Info("sample document seeded",
			"topic", doc.Metadata["topic"], "chunks", res.Chunks)
		results = append(results, res)
	}

	return results, nil
}
