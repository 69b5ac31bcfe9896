package fraud

import "regexp"

// templatePatterns is a small library of known generic review phrasings in
// Swedish and English. Matches are counted against normalized text, so the
// patterns are written in folded, lowercase form.
var templatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bbra service\b`),
	regexp.MustCompile(`\btrevlig personal\b`),
	regexp.MustCompile(`\ballt (?:var )?bra\b`),
	regexp.MustCompile(`\binget (?:att )?klaga\b`),
	regexp.MustCompile(`\brekommenderar (?:starkt|varmt)\b`),
	regexp.MustCompile(`\bkan rekommenderas?\b`),
	regexp.MustCompile(`\bmycket nojd\b`),
	regexp.MustCompile(`\bgreat service\b`),
	regexp.MustCompile(`\bfriendly staff\b`),
	regexp.MustCompile(`\bhighly recommend(?:ed)?\b`),
	regexp.MustCompile(`\bwould recommend\b`),
	regexp.MustCompile(`\beverything was (?:great|good|perfect|fine)\b`),
	regexp.MustCompile(`\bnothing to complain(?: about)?\b`),
	regexp.MustCompile(`\bfive stars?\b`),
	regexp.MustCompile(`\bwill (?:definitely )?come back\b`),
}

// synonymCanon maps domain vocabulary to canonical terms before the semantic
// Jaccard comparison, so "staff" and "personal" count as the same signal.
var synonymCanon = map[string]string{
	// service
	"service": "service", "bemotande": "service", "betjaning": "service",
	// staff
	"staff": "staff", "personal": "staff", "personalen": "staff",
	"employee": "staff", "employees": "staff", "anstallda": "staff",
	"waiter": "staff", "waitress": "staff", "servitor": "staff", "servitris": "staff",
	// quality
	"quality": "quality", "kvalitet": "quality", "kvaliteten": "quality",
	"standard": "quality",
	// food
	"food": "food", "mat": "food", "maten": "food", "meal": "food",
	"dish": "food", "dishes": "food", "ratt": "food", "ratter": "food",
	// good
	"good": "good", "bra": "good", "great": "good", "fin": "good", "fint": "good",
	"nice": "good", "trevlig": "good", "trevligt": "good", "excellent": "good",
	"perfect": "good", "perfekt": "good", "underbar": "good", "wonderful": "good",
	// bad
	"bad": "bad", "dalig": "bad", "daligt": "bad", "poor": "bad",
	"terrible": "bad", "awful": "bad", "hemsk": "bad", "hemskt": "bad",
	// recommend
	"recommend": "recommend", "rekommenderar": "recommend", "rekommendera": "recommend",
	"recommended": "recommend", "rekommenderas": "recommend",
}

// canonicalToken maps a token through the synonym table
func canonicalToken(tok string) string {
	if canon, ok := synonymCanon[tok]; ok {
		return canon
	}
	return tok
}

// sentimentWords are strong-polarity words used by the context checker to
// spot extreme, unspecific reviews.
var sentimentWords = map[string]struct{}{
	"good": {}, "great": {}, "excellent": {}, "perfect": {}, "amazing": {},
	"wonderful": {}, "fantastic": {}, "best": {}, "awesome": {}, "love": {},
	"bad": {}, "terrible": {}, "awful": {}, "worst": {}, "horrible": {}, "hate": {},
	"bra": {}, "bast": {}, "perfekt": {}, "underbar": {}, "fantastisk": {},
	"toppen": {}, "kanon": {}, "dalig": {}, "samst": {}, "hemsk": {}, "usel": {},
	"trevlig": {}, "trevligt": {}, "nice": {},
}

// businessVocab maps declared business types to expected domain vocabulary,
// in folded lowercase form.
var businessVocab = map[string][]string{
	"restaurant": {
		"food", "meal", "menu", "taste", "dish", "lunch", "dinner", "table",
		"waiter", "kitchen", "portion", "drink", "dessert",
		"mat", "maten", "meny", "smak", "ratt", "middag", "bord", "kok",
		"portion", "dryck", "efterratt", "frukost",
	},
	"retail": {
		"store", "shop", "price", "product", "selection", "checkout", "return",
		"item", "shelf", "stock",
		"butik", "butiken", "pris", "priser", "produkt", "sortiment", "kassa",
		"vara", "varor", "hylla", "lager",
	},
	"salon": {
		"hair", "cut", "haircut", "color", "style", "appointment", "barber",
		"har", "klippning", "frisyr", "farg", "farjning", "tid", "frisor",
	},
	"automotive": {
		"car", "repair", "engine", "tire", "brake", "inspection", "workshop",
		"bil", "bilen", "verkstad", "motor", "dack", "broms", "besiktning",
		"reparation",
	},
	"cafe": {
		"coffee", "latte", "espresso", "pastry", "bun", "tea",
		"kaffe", "fika", "bulle", "kaka", "te", "latte",
	},
}

// serviceVocab is vocabulary plausible for any service business
var serviceVocab = []string{
	"service", "staff", "personal", "bemotande", "wait", "vanta", "queue",
	"ko", "clean", "rent", "price", "pris", "open", "oppet", "visit", "besok",
}
