// faq.go - Offline intent detection with canned answers for the chat fallback

package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Intent is a question family the assistant can answer without a model.
type Intent string

const (
	IntentGreeting   Intent = "greeting"
	IntentGoodbye    Intent = "goodbye"
	IntentScan       Intent = "scan_receipt"
	IntentAddExpense Intent = "add_expense"
	IntentSplit      Intent = "split_expenses"
	IntentCategories Intent = "categories"
	IntentHelp       Intent = "help"
	IntentUnknown    Intent = "unknown"
)

// DefaultFAQConfidence is the minimum confidence for a canned answer.
const DefaultFAQConfidence = 0.7

// FAQAnswer is a canned reply for a detected intent.
type FAQAnswer struct {
	Intent     Intent  `json:"intent"`
	Response   string  `json:"response"`
	Confidence float64 `json:"confidence"`
}

type intentPattern struct {
	intent   Intent
	patterns []*regexp.Regexp
	keywords []string
	priority int
}

// Ordered by priority. Patterns and keywords are written without accents
// since messages are normalized first.
var intentPatterns = []intentPattern{
	{
		intent: IntentGreeting,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(salut|bonjour|hello|hi|hey|coucou|bonsoir|hallo|dag)\b`),
			regexp.MustCompile(`^(ca va|comment ca va)\b`),
		},
		keywords: []string{"salut", "bonjour", "hello", "coucou", "hallo"},
		priority: 100,
	},
	{
		intent: IntentGoodbye,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(au revoir|bye|merci|thanks|thank you|ciao|dank je|tot ziens)\b`),
			regexp.MustCompile(`bonne (journee|soiree|nuit)`),
		},
		keywords: []string{"bye", "aurevoir", "merci", "ciao", "thanks"},
		priority: 99,
	},
	{
		intent: IntentScan,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(scanner|scan|photo|photographier).*(ticket|recu|receipt|facture|bon)`),
			regexp.MustCompile(`(ticket|recu|receipt|facture).*(scanner|scan|photo)`),
		},
		keywords: []string{"scanner", "photo", "ticket", "recu", "receipt", "facture"},
		priority: 80,
	},
	{
		intent: IntentAddExpense,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(ajouter|creer|enregistrer|noter|add|record).*(depense|expense|achat|uitgave)`),
		},
		keywords: []string{"ajouter", "depense", "expense", "enregistrer", "montant"},
		priority: 75,
	},
	{
		intent: IntentSplit,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(partager|diviser|repartir|split|share|verdelen).*(frais|depense|expense|facture|loyer|rent|bill|kosten)`),
			regexp.MustCompile(`qui doit (payer|combien)|who owes`),
		},
		keywords: []string{"partager", "repartir", "split", "rembourser", "doit"},
		priority: 70,
	},
	{
		intent: IntentCategories,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(categorie|categories|category|categorieen)\b`),
		},
		keywords: []string{"categorie", "category", "classer", "type"},
		priority: 65,
	},
	{
		intent: IntentHelp,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\b(aide|help|besoin d'aide|probleme|hulp)\b`),
			regexp.MustCompile(`ne (comprends|sais|trouve) pas`),
		},
		keywords: []string{"aide", "help", "probleme", "question"},
		priority: 40,
	},
}

var faqResponses = map[Intent]FAQAnswer{
	IntentGreeting: {
		Response: "Bonjour ! Je peux vous aider à scanner un ticket, ajouter une dépense, " +
			"partager des frais ou comprendre les catégories. Posez-moi votre question.",
		Confidence: 1.0,
	},
	IntentGoodbye: {
		Response:   "Merci et à bientôt ! Vos dépenses restent enregistrées.",
		Confidence: 1.0,
	},
	IntentScan: {
		Response: "Pour scanner un ticket : ouvrez Finances, touchez \"Scanner\" et photographiez le reçu " +
			"à plat et bien éclairé. Le commerçant, le total, la date et les articles sont remplis " +
			"automatiquement ; vérifiez-les avant d'enregistrer.",
		Confidence: 0.9,
	},
	IntentAddExpense: {
		Response: "Pour ajouter une dépense : touchez \"+\" dans Finances, saisissez le montant et une " +
			"description, ou écrivez simplement \"45,30€ chez Colruyt hier\" et la dépense sera préremplie.",
		Confidence: 0.9,
	},
	IntentSplit: {
		Response: "Chaque dépense est répartie entre les membres choisis, à parts égales par défaut. " +
			"Le solde de chacun est visible dans Finances, avec les remboursements à effectuer.",
		Confidence: 0.85,
	},
	IntentCategories: {
		Response: "Les catégories disponibles sont : courses, charges, internet, loyer, nettoyage, " +
			"loisirs, transport, santé et autre. Elles sont proposées automatiquement et restent modifiables.",
		Confidence: 0.85,
	},
	IntentHelp: {
		Response: "Je peux vous renseigner sur le scan des tickets, l'ajout de dépenses, " +
			"le partage des frais et les catégories. Que souhaitez-vous faire ?",
		Confidence: 0.8,
	},
}

// normalizeMessage lower-cases, strips accents and punctuation.
func normalizeMessage(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '€' {
			return unicode.ToLower(r)
		}
		return ' '
	}, stripped)
	return strings.Join(strings.Fields(stripped), " ")
}

func keywordScore(normalized string, keywords []string) float64 {
	matches := 0
	for _, k := range keywords {
		if strings.Contains(normalized, k) {
			matches++
		}
	}
	return float64(matches) / float64(len(keywords))
}

// DetectIntent returns the intent of a message and a confidence in [0, 1].
// The first pattern match in priority order wins; otherwise the best
// keyword overlap is used, capped at 0.85.
func DetectIntent(message string) (Intent, float64) {
	normalized := normalizeMessage(message)
	if normalized == "" {
		return IntentUnknown, 0
	}

	for _, ip := range intentPatterns {
		for _, re := range ip.patterns {
			if re.MatchString(normalized) {
				return ip.intent, min(0.9+float64(ip.priority)/1000, 1)
			}
		}
	}

	best, confidence := IntentUnknown, 0.0
	for _, ip := range intentPatterns {
		score := keywordScore(normalized, ip.keywords)
		if score <= 0.3 {
			continue
		}
		c := min(0.5+score*0.4+float64(ip.priority)/2000, 0.85)
		if c > confidence {
			best, confidence = ip.intent, c
		}
	}
	return best, confidence
}

// AnswerFAQ returns the canned answer for message when its intent is
// detected with at least minConfidence.
func AnswerFAQ(message string, minConfidence float64) (FAQAnswer, bool) {
	intent, confidence := DetectIntent(message)
	if intent == IntentUnknown || confidence < minConfidence {
		return FAQAnswer{}, false
	}
	answer := faqResponses[intent]
	answer.Intent = intent
	answer.Confidence = min(answer.Confidence, confidence)
	return answer, true
}
