// Package glossary manages the game terminology store in Neo4j: proper nouns
// and engine terms that must survive translation unchanged, plus the few
// terms with an established French rendering. TokenGuard takes its
// proper-noun lookup set from here; the prompt builder takes the terminology
// reference.
package glossary

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog/log"
)

// Term is one glossary entry. Proper nouns keep French equal to English.
type Term struct {
	English  string
	French   string
	Category string // character, location, faction, item, mechanic
}

// Store reads and writes glossary terms in Neo4j.
type Store struct {
	driver neo4j.DriverWithContext
}

func NewStore(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// EnsureSchema creates constraints on the Neo4j database.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	constraints := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (t:Term) REQUIRE t.english IS UNIQUE",
	}
	for _, c := range constraints {
		if _, err := session.Run(ctx, c, nil); err != nil {
			return fmt.Errorf("create constraint: %w", err)
		}
	}

	log.Info().Msg("Glossary schema ensured")
	return nil
}

// Seed upserts the built-in Persona 3 FES terminology.
func (s *Store) Seed(ctx context.Context) error {
	terms := defaultTerms()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, t := range terms {
		_, err := session.Run(ctx, `
			MERGE (t:Term {english: $english})
			SET t.french = $french,
			    t.category = $category
		`, map[string]any{
			"english":  t.English,
			"french":   t.French,
			"category": t.Category,
		})
		if err != nil {
			return fmt.Errorf("upsert term %s: %w", t.English, err)
		}
	}

	log.Info().Int("terms", len(terms)).Msg("Seeded glossary terms")
	return nil
}

// All retrieves every glossary term as an english→french map.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (t:Term)
		RETURN t.english AS english, t.french AS french
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("load glossary: %w", err)
	}

	terms := make(map[string]string)
	for result.Next(ctx) {
		record := result.Record()
		english, _ := record.Get("english")
		french, _ := record.Get("french")
		terms[fmt.Sprintf("%v", english)] = fmt.Sprintf("%v", french)
	}

	log.Info().Int("count", len(terms)).Msg("Loaded glossary from graph")
	return terms, nil
}

// Nouns returns the proper nouns whose French rendering is identical to the
// English one — the set TokenGuard must protect verbatim.
func Nouns(terms map[string]string) []string {
	var nouns []string
	for en, fr := range terms {
		if en == fr {
			nouns = append(nouns, en)
		}
	}
	return nouns
}

// TermsIn filters terms to those occurring in text.
func TermsIn(terms map[string]string, text string) map[string]string {
	found := make(map[string]string)
	for en, fr := range terms {
		if strings.Contains(text, en) {
			found[en] = fr
		}
	}
	return found
}

// defaultTerms returns the Persona 3 FES terminology whitelist.
func defaultTerms() []Term {
	return []Term{
		// Party and major characters
		{English: "Yukari Takeba", French: "Yukari Takeba", Category: "character"},
		{English: "Mitsuru Kirijo", French: "Mitsuru Kirijo", Category: "character"},
		{English: "Fuuka Yamagishi", French: "Fuuka Yamagishi", Category: "character"},
		{English: "Akihiko Sanada", French: "Akihiko Sanada", Category: "character"},
		{English: "Junpei Iori", French: "Junpei Iori", Category: "character"},
		{English: "Shinjiro Aragaki", French: "Shinjiro Aragaki", Category: "character"},
		{English: "Ken Amada", French: "Ken Amada", Category: "character"},
		{English: "Ryoji Mochizuki", French: "Ryoji Mochizuki", Category: "character"},
		{English: "Yukari", French: "Yukari", Category: "character"},
		{English: "Mitsuru", French: "Mitsuru", Category: "character"},
		{English: "Fuuka", French: "Fuuka", Category: "character"},
		{English: "Akihiko", French: "Akihiko", Category: "character"},
		{English: "Junpei", French: "Junpei", Category: "character"},
		{English: "Shinjiro", French: "Shinjiro", Category: "character"},
		{English: "Koromaru", French: "Koromaru", Category: "character"},
		{English: "Aigis", French: "Aigis", Category: "character"},
		{English: "Elizabeth", French: "Elizabeth", Category: "character"},
		{English: "Igor", French: "Igor", Category: "character"},
		{English: "Pharos", French: "Pharos", Category: "character"},
		{English: "Ryoji", French: "Ryoji", Category: "character"},
		{English: "Chidori", French: "Chidori", Category: "character"},
		{English: "Takaya", French: "Takaya", Category: "character"},
		{English: "Jin", French: "Jin", Category: "character"},
		{English: "Ikutsuki", French: "Ikutsuki", Category: "character"},
		{English: "Makoto", French: "Makoto", Category: "character"},

		// Factions and locations
		{English: "SEES", French: "SEES", Category: "faction"},
		{English: "S.E.E.S.", French: "S.E.E.S.", Category: "faction"},
		{English: "Strega", French: "Strega", Category: "faction"},
		{English: "Kirijo Group", French: "Kirijo Group", Category: "faction"},
		{English: "Tartarus", French: "Tartarus", Category: "location"},
		{English: "Gekkoukan", French: "Gekkoukan", Category: "location"},
		{English: "Paulownia Mall", French: "Paulownia Mall", Category: "location"},
		{English: "Iwatodai", French: "Iwatodai", Category: "location"},
		{English: "Velvet Room", French: "Salle de Velours", Category: "location"},

		// Mechanics and mythos
		{English: "Persona", French: "Persona", Category: "mechanic"},
		{English: "Evoker", French: "Evoker", Category: "mechanic"},
		{English: "Shadow", French: "Ombre", Category: "mechanic"},
		{English: "Dark Hour", French: "Heure Sombre", Category: "mechanic"},
		{English: "Nyx", French: "Nyx", Category: "mythos"},
		{English: "Nyx Avatar", French: "Nyx Avatar", Category: "mythos"},
		{English: "Orpheus", French: "Orpheus", Category: "mythos"},
		{English: "Thanatos", French: "Thanatos", Category: "mythos"},
	}
}
