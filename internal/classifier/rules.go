// rules.go - Offline keyword classifier used when no provider can answer

package classifier

import (
	"regexp"
	"strings"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

const (
	merchantConfidence = 0.6
	keywordConfidence  = 0.5
	defaultConfidence  = 0.2
)

type rule struct {
	category  models.Category
	merchants *regexp.Regexp
	keywords  *regexp.Regexp
}

// words compiles a case-insensitive alternation anchored on word boundaries.
func words(terms ...string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + strings.Join(quoted, "|") + `)(?:$|[^\pL\pN])`)
}

// Evaluated in order, first match wins.
var rules = []rule{
	{
		category: models.CategoryGroceries,
		merchants: words("carrefour", "delhaize", "colruyt", "aldi", "lidl", "leclerc", "auchan",
			"intermarche", "intermarché", "super u", "hyper u", "monoprix", "franprix", "casino",
			"picard", "spar", "cora", "okay", "albert heijn", "jumbo", "proxy delhaize"),
		keywords: words("courses", "supermarché", "supermarche", "épicerie", "epicerie", "alimentation",
			"boulangerie", "boucherie", "marché", "boodschappen", "supermarkt", "bakker", "slager",
			"groceries", "grocery", "supermarket", "food", "pain", "bread", "lait", "milk"),
	},
	{
		category:  models.CategoryUtilities,
		merchants: words("engie", "electrabel", "luminus", "edf", "totalenergies", "vivaqua", "sibelga", "fluvius", "veolia", "eneco"),
		keywords: words("électricité", "electricite", "gaz", "eau", "énergie", "energie", "chauffage",
			"elektriciteit", "water", "verwarming", "electricity", "gas", "utility", "utilities", "heating"),
	},
	{
		category:  models.CategoryInternet,
		merchants: words("proximus", "telenet", "voo", "orange", "scarlet", "sfr", "bouygues"),
		keywords: words("internet", "wifi", "wi-fi", "fibre", "fiber", "abonnement mobile",
			"forfait", "gsm", "mobile", "téléphone", "telephone", "telefoon", "phone plan", "broadband"),
	},
	{
		category:  models.CategoryRent,
		merchants: words("agence immobilière", "immo", "syndic"),
		keywords: words("loyer", "location appartement", "bail", "charges locatives", "huur", "huurprijs",
			"rent", "lease", "landlord", "propriétaire", "proprietaire"),
	},
	{
		category:  models.CategoryCleaning,
		merchants: words("kruidvat", "hema"),
		keywords: words("nettoyage", "ménage", "menage", "détergent", "detergent", "lessive", "javel",
			"éponge", "eponge", "poubelle", "schoonmaak", "poetsen", "wasmiddel", "cleaning", "cleaner",
			"soap", "savon", "sacs poubelle"),
	},
	{
		category:  models.CategoryEntertainment,
		merchants: words("netflix", "spotify", "disney", "kinepolis", "ugc", "pathé", "pathe", "fnac", "steam", "playstation", "deezer"),
		keywords: words("cinéma", "cinema", "concert", "restaurant", "resto", "sortie",
			"jeux", "bioscoop", "uitgaan", "movie", "games", "streaming", "theatre", "théâtre"),
	},
	{
		category:  models.CategoryTransport,
		merchants: words("stib", "mivb", "sncb", "nmbs", "de lijn", "tec", "ratp", "sncf", "uber", "bolt", "shell", "q8", "esso", "lukoil"),
		keywords: words("essence", "carburant", "diesel", "parking", "péage", "peage", "train", "métro", "metro",
			"bus", "tram", "taxi", "benzine", "tanken", "trein", "fuel", "petrol", "transport"),
	},
	{
		category:  models.CategoryHealth,
		merchants: words("pharmacie", "apotheek", "multipharma", "medi-market", "newpharma", "mutualité", "mutualite", "ziekenfonds"),
		keywords: words("médecin", "medecin", "docteur", "dentiste", "hôpital", "hopital", "médicament",
			"medicament", "pharmacy", "dokter", "tandarts", "ziekenhuis", "doctor", "dentist", "hospital",
			"medicine", "santé", "sante", "health"),
	},
}

// Classify classifies an expense using its description and an optional
// merchant name. Merchant matches are checked against both inputs and score
// higher than vocabulary matches.
func Classify(text, merchant string) models.CategoryData {
	combined := strings.TrimSpace(merchant + " " + text)
	if combined == "" {
		return other()
	}

	for _, r := range rules {
		if r.merchants.MatchString(combined) {
			return models.CategoryData{
				Category:   r.category,
				Confidence: merchantConfidence,
				Reasoning:  "known merchant for " + string(r.category),
			}
		}
		if r.keywords.MatchString(combined) {
			return models.CategoryData{
				Category:   r.category,
				Confidence: keywordConfidence,
				Reasoning:  "keyword match for " + string(r.category),
			}
		}
	}
	return other()
}

func other() models.CategoryData {
	return models.CategoryData{
		Category:   models.CategoryOther,
		Confidence: defaultConfidence,
		Reasoning:  "no rule matched",
	}
}
